package config

import "time"

// BookingConfig collects the policy constants of the booking engine.
// All values have sensible defaults and can be overridden through the
// environment, which keeps tests and staging deployments flexible
// without making the sweep deadline a per-request concern.
type BookingConfig struct {
	HorizonDays       int           // how far ahead sessions are materialized
	GenerateEvery     time.Duration // interval between generator runs
	SweepEvery        time.Duration // interval between sweeper runs
	PendingDeadline   time.Duration // age after which a PENDING booking is reclaimed
	MaxActiveBookings int           // per-member cap on non-terminal future bookings
	MaxOriginPerDay   int           // per-origin cap on new bookings in a 24h window
	FreeGrace         time.Duration // margin before session start for free-session restore
	ChargeTimeout     time.Duration // upper bound on a card charge call
	BrokerEnabled     bool          // whether booking events go to RabbitMQ
}

// LoadBookingConfig reads the booking policy from the environment,
// falling back to the documented defaults.
func LoadBookingConfig() BookingConfig {
	return BookingConfig{
		HorizonDays:       envInt("BOOKING_HORIZON_DAYS", 14),
		GenerateEvery:     envDur("BOOKING_GENERATE_EVERY", 6*time.Hour),
		SweepEvery:        envDur("BOOKING_SWEEP_EVERY", time.Hour),
		PendingDeadline:   envDur("BOOKING_PENDING_DEADLINE", 24*time.Hour),
		MaxActiveBookings: envInt("BOOKING_MAX_ACTIVE", 10),
		MaxOriginPerDay:   envInt("BOOKING_MAX_ORIGIN_PER_DAY", 20),
		FreeGrace:         envDur("BOOKING_FREE_GRACE", time.Hour),
		ChargeTimeout:     envDur("BOOKING_CHARGE_TIMEOUT", 10*time.Second),
		BrokerEnabled:     envBool("BROKER_ENABLED", true),
	}
}
