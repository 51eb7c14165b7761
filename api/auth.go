package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/interfaces"
)

// Headers carrying the caller's request signature.
const (
	AccountHeader   = "X-Registry-Account"
	SignatureHeader = "X-Registry-Signature"
	TimestampHeader = "X-Registry-Timestamp"

	// DefaultMaxClockSkew bounds how far a request timestamp may be from the
	// server clock.
	DefaultMaxClockSkew = 5 * time.Minute

	// MaxBodySize is the maximum accepted request body (1MB).
	MaxBodySize = 1024 * 1024
)

var (
	ErrMissingAuthHeaders = errors.New("missing request signature headers")
	ErrInvalidSignature   = errors.New("invalid request signature")
	ErrStaleRequest       = errors.New("request timestamp outside the accepted window")
)

// SigningMessage is the message a caller signs: method, path, unix timestamp
// and the keccak256 of the body, newline separated.
func SigningMessage(method, path, timestamp string, body []byte) []byte {
	return []byte(fmt.Sprintf("%s\n%s\n%s\n%x", method, path, timestamp, crypto.Keccak256(body)))
}

// SignRequest adds the signature headers to req. body must be the exact bytes
// sent as the request body.
func SignRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey, now time.Time) error {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	hash := accounts.TextHash(SigningMessage(req.Method, req.URL.Path, timestamp, body))

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	req.Header.Set(AccountHeader, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(TimestampHeader, timestamp)
	req.Header.Set(SignatureHeader, hexutil.Encode(sig))
	return nil
}

// VerifyRequest authenticates r and returns the signing account. The body is
// read and restored so handlers can decode it afterwards.
func VerifyRequest(r *http.Request, now time.Time, maxSkew time.Duration) (interfaces.AccountID, error) {
	accountStr := r.Header.Get(AccountHeader)
	sigStr := r.Header.Get(SignatureHeader)
	timestamp := r.Header.Get(TimestampHeader)
	if accountStr == "" || sigStr == "" || timestamp == "" {
		return interfaces.AccountID{}, ErrMissingAuthHeaders
	}

	claimed, err := interfaces.NewAccountIDFromHex(accountStr)
	if err != nil {
		return interfaces.AccountID{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return interfaces.AccountID{}, fmt.Errorf("%w: invalid timestamp", ErrInvalidSignature)
	}
	if skew := now.Sub(time.Unix(ts, 0)); skew > maxSkew || skew < -maxSkew {
		return interfaces.AccountID{}, ErrStaleRequest
	}

	sig, err := hexutil.Decode(sigStr)
	if err != nil || len(sig) != crypto.SignatureLength {
		return interfaces.AccountID{}, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
		if err != nil {
			return interfaces.AccountID{}, fmt.Errorf("failed to read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	hash := accounts.TextHash(SigningMessage(r.Method, r.URL.Path, timestamp, body))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return interfaces.AccountID{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	recovered := interfaces.AccountID(crypto.PubkeyToAddress(*pub))
	if recovered != claimed {
		return interfaces.AccountID{}, fmt.Errorf("%w: signer %s does not match %s", ErrInvalidSignature, recovered, claimed)
	}
	return recovered, nil
}

type callerKey struct{}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, caller interfaces.AccountID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the authenticated caller stored by WithCaller.
func CallerFrom(ctx context.Context) (interfaces.AccountID, bool) {
	caller, ok := ctx.Value(callerKey{}).(interfaces.AccountID)
	return caller, ok
}
