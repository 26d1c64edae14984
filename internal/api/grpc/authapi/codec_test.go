package authapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestCodec_WireShape(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := Codec{}.Marshal(&RefreshResponse{AccessToken: "a.b.c", ExpiresAt: timestamppb.New(exp)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a.b.c","expires_at":"2026-01-02T03:04:05Z"}`, string(data))

	var in RegisterRequest
	require.NoError(t, Codec{}.Unmarshal([]byte(`{"email":"a@x.com","password":"p","given_name":"Ada","extra":1}`), &in))
	assert.True(t, proto.Equal(&RegisterRequest{Email: "a@x.com", Password: "p", GivenName: "Ada"}, &in))

	assert.NoError(t, Codec{}.Unmarshal(nil, &emptypb.Empty{}))

	err = Codec{}.Unmarshal([]byte(`{"email":`), &in)
	assert.ErrorContains(t, err, "failed to unmarshal *authapi.RegisterRequest")

	_, err = Codec{}.Marshal(struct{}{})
	assert.ErrorContains(t, err, "not a proto message")
}

func TestMessages_ProtoRoundTrip(t *testing.T) {
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	want := &SessionResponse{
		Account: &Account{Id: 7, Email: "a@x.com", Active: true, CreatedAt: timestamppb.New(at)},
		Tokens:  &Tokens{AccessToken: "acc", RefreshToken: "ref", AccessExpiresAt: timestamppb.New(at.Add(time.Minute))},
	}

	data, err := proto.Marshal(want)
	require.NoError(t, err)

	got := &SessionResponse{}
	require.NoError(t, proto.Unmarshal(data, got))
	assert.True(t, proto.Equal(want, got))
	assert.Equal(t, int64(7), got.GetAccount().GetId())
	assert.Nil(t, got.GetAccount().GetLastLoginAt())
	assert.Equal(t, "authlib.Auth", Auth_ServiceDesc.ServiceName)
	assert.Equal(t, "/authlib.Accounts/Me", Accounts_Me_FullMethodName)
}
