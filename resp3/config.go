package resp3

// Config is a Request's per-request policy (spec §3 "Request … config
// record"). The zero value is not valid; use NewRequest, which sets the
// documented defaults.
type Config struct {
	// Coalesce: may this request be concatenated with the next staged
	// request into one socket write? Default true.
	Coalesce bool
	// CancelIfUnresponsive: drop and fail if the connection dies before a
	// reply arrives.
	CancelIfUnresponsive bool
	// CancelIfNotConnected: fail immediately if no connection exists at
	// submission time.
	CancelIfNotConnected bool
}

func defaultConfig() Config {
	return Config{Coalesce: true}
}
