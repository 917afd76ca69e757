// Package config provides configuration helpers for go-eulerfilter commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default configuration.
const (
	DefaultPort      = 8080
	DefaultLogLevel  = "info"
	DefaultMethod    = "UNWRAP"
	DefaultOrder     = "XYZ"
	DefaultDirection = "forward"
	DefaultFrameRate = 24.0
)

// Environment variable names.
const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvMethod    = "EULER_METHOD"
	EnvOrder     = "EULER_ORDER"
	EnvDirection = "EULER_DIRECTION"
	EnvFrameRate = "EULER_FRAME_RATE"
)

// String returns the value of the env var key, or def if unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var key parsed as an int.
// Falls back to def if unset; returns an error if set but malformed.
func Int(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

// Float returns the env var key parsed as a float64.
// Falls back to def if unset; returns an error if set but malformed.
func Float(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not a number: %w", key, v, err)
	}
	return f, nil
}

// Port returns the HTTP port from PORT, or DefaultPort.
func Port() (int, error) {
	return Int(EnvPort, DefaultPort)
}

// LogLevel returns the log level from LOG_LEVEL, or DefaultLogLevel.
func LogLevel() string {
	return String(EnvLogLevel, DefaultLogLevel)
}

// Method returns the filter method name from EULER_METHOD, or DefaultMethod.
func Method() string {
	return String(EnvMethod, DefaultMethod)
}

// Order returns the axis order name from EULER_ORDER, or DefaultOrder.
func Order() string {
	return String(EnvOrder, DefaultOrder)
}

// Direction returns the batch direction name from EULER_DIRECTION, or DefaultDirection.
func Direction() string {
	return String(EnvDirection, DefaultDirection)
}

// FrameRate returns the frames-per-second used to convert glTF seconds to frames.
func FrameRate() (float64, error) {
	return Float(EnvFrameRate, DefaultFrameRate)
}
