package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429/430 throttling responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// StorefrontError is returned for every failed storefront request.
type StorefrontError struct {
	StatusCode int
	ErrorClass ErrorClass
	URL        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *StorefrontError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storefront %s error (status %d) for %s: %s: %v",
			e.ErrorClass, e.StatusCode, e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("storefront %s error (status %d) for %s: %s",
		e.ErrorClass, e.StatusCode, e.URL, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StorefrontError) Unwrap() error {
	return e.Err
}

// ClassOf returns the ErrorClass of err, or "" if err is not a StorefrontError.
func ClassOf(err error) ErrorClass {
	var sfErr *StorefrontError
	if errors.As(err, &sfErr) {
		return sfErr.ErrorClass
	}
	return ""
}

// classifyStatus maps an HTTP status code to an ErrorClass. 2xx and 3xx map to "".
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 429 || statusCode == 430:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
