package handler

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authlib-server/internal/model"
)

// ErrorDomain is reported in the ErrorInfo detail of every failed call.
const ErrorDomain = "authlib"

var kindCodes = map[model.ErrorKind]codes.Code{
	model.KindValidation:         codes.InvalidArgument,
	model.KindNotFound:           codes.NotFound,
	model.KindAlreadyExists:      codes.AlreadyExists,
	model.KindInvalidCredentials: codes.Unauthenticated,
	model.KindInvalidToken:       codes.Unauthenticated,
	model.KindStorage:            codes.Unavailable,
}

func handleError(err error) error {
	kind := model.KindOf(err)

	code, ok := kindCodes[kind]
	msg := err.Error()
	if !ok {
		kind = model.KindInternal
		code = codes.Internal
		msg = "internal server error"
	}

	st := status.New(code, msg)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(kind),
		Domain: ErrorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorKind extracts the kind tag a server attached to a status error.
func ErrorKind(err error) (model.ErrorKind, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return model.ErrorKind(info.GetReason()), true
		}
	}
	return "", false
}
