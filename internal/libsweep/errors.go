package libsweep

import "fmt"

// ConfigError reports an invalid sweep parameter. It is returned before any
// experiment is built.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid sweep parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid sweep parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// AssetError reports a guest config file whose payload can't be read.
type AssetError struct {
	Experiment string
	Host       string
	File       string
	Err        error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("experiment %s: host %s: can't read config file %s: %v", e.Experiment, e.Host, e.File, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }
