package multiq

// DBOpt is an option for configuring a DB
type DBOpt func(d *DB)

// WithLogger overrides the default zap-backed logger
func WithLogger(logger Logger) DBOpt {
	return func(d *DB) {
		d.logger = logger
	}
}

// WithEngine overrides the embedded computation engine - queries created with
// DB.Query submit their jobs to it
func WithEngine(engine Engine) DBOpt {
	return func(d *DB) {
		d.engine = engine
	}
}
