// This file contains the background consumer that listens to the
// booking lifecycle queues and writes structured lines to
// logs/booking.log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartBookingConsumer connects to RabbitMQ, declares the booking
// lifecycle queues (durable), and starts consuming messages from both.
// Each message is appended to logs/booking.log in a single-line,
// human-friendly format. The function runs a reconnect loop and keeps
// running indefinitely, logging any processing errors while rejecting
// the offending message so the server continues operating.
func StartBookingConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{BookingConfirmedQueue, BookingCancelledQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	confirmed, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", BookingConfirmedQueue, err)
	}
	cancelled, err := ch.Consume(BookingCancelledQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", BookingCancelledQueue, err)
	}

	for {
		var d amqp.Delivery
		var kind string
		var ok bool
		select {
		case d, ok = <-confirmed:
			kind = "CONFIRMED"
		case d, ok = <-cancelled:
			kind = "CANCELLED"
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := handleMessage(kind, d.Body); err != nil {
			log.Printf("booking-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func handleMessage(kind string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// Ensure logs directory exists
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "booking.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s %s booking=%d member=%d session=%d %q %s %s method=%s free=%t price_cents=%d\n",
		time.Now().UTC().Format(time.RFC3339), kind,
		ev.BookingID, ev.MemberID, ev.SessionID,
		ev.SessionTitle, ev.SessionDate, ev.StartTime,
		ev.PaymentMethod, ev.IsFreeSession, ev.PriceCents,
	)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	return nil
}
