package models

import "net/http"

// Result is the uniform outcome returned by every catalog service call.
// Failures never cross the service boundary as errors; they are carried here
// with the status code the transport should use.
type Result[T any] struct {
	Success      bool   `json:"success"`
	Data         *T     `json:"data,omitempty"`
	DataList     []T    `json:"dataList,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StatusCode   int    `json:"statusCode"`
}

func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data, StatusCode: http.StatusOK}
}

func Created[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data, StatusCode: http.StatusCreated}
}

// Empty is a success without payload, e.g. after a delete.
func Empty[T any]() Result[T] {
	return Result[T]{Success: true, StatusCode: http.StatusOK}
}

// List wraps a collection. An empty collection is still a success.
func List[T any](items []T) Result[T] {
	if items == nil {
		items = []T{}
	}
	return Result[T]{Success: true, DataList: items, StatusCode: http.StatusOK}
}

func Fail[T any](status int, message string) Result[T] {
	return Result[T]{Success: false, StatusCode: status, ErrorMessage: message}
}
