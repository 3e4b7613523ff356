package api

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func NewInvalidArgumentError(format string, args ...any) error {
	return status.New(codes.InvalidArgument, fmt.Sprintf(format, args...)).Err()
}

func NewNotFoundError(format string, args ...any) error {
	return status.New(codes.NotFound, fmt.Sprintf(format, args...)).Err()
}

func NewAlreadyExistsError(format string, args ...any) error {
	return status.New(codes.AlreadyExists, fmt.Sprintf(format, args...)).Err()
}

func NewInternalError(format string, args ...any) error {
	return status.New(codes.Internal, fmt.Sprintf(format, args...)).Err()
}

// Kind returns the error kind carried by err. A nil error is codes.OK and an
// error not created by this package is codes.Unknown.
func Kind(err error) codes.Code {
	return status.Code(err)
}

// Message returns the message carried by err without the kind prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}

func IsInvalidArgument(err error) bool {
	return Kind(err) == codes.InvalidArgument
}

func IsNotFound(err error) bool {
	return Kind(err) == codes.NotFound
}

func IsAlreadyExists(err error) bool {
	return Kind(err) == codes.AlreadyExists
}
