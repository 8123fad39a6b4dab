package config

import "errors"

// Config errors. Callers should use errors.Is.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDataDirEmpty       = errors.New("data_dir cannot be empty")
	ErrWorkersInvalid     = errors.New("workers must be >= 1")
	ErrLockTimeoutInvalid = errors.New("lock_timeout must be a positive duration")
	ErrLogLevelInvalid    = errors.New("log_level must be debug, info, warn or error")
	ErrTimeZoneInvalid    = errors.New("unknown time_zone")
)
