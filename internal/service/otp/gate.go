package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/pkg/security"
)

// Digits is the length of generated start codes.
const Digits = 4

var (
	ErrNotIssued       = errors.New("start code not generated yet")
	ErrAlreadyVerified = errors.New("start code already verified")
	ErrInvalidCode     = errors.New("invalid start code")
	ErrInvalidState    = errors.New("start code verification requires an accepted booking")
	ErrExpired         = errors.New("start code expired")
)

// Gate issues and verifies the one-time numeric code that gates the
// ACCEPTED to STARTED transition. Only the bcrypt hash is ever persisted;
// the plaintext is returned once to the caller for delivery.
type Gate struct {
	bookings repository.BookingRepository
	hasher   security.Hasher
	ttl      time.Duration
	now      func() time.Time
}

// NewGate creates a gate. A zero ttl disables expiry.
func NewGate(bookings repository.BookingRepository, hasher security.Hasher, ttl time.Duration) *Gate {
	return &Gate{
		bookings: bookings,
		hasher:   hasher,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue generates a fresh code for the booking and stores its hash. The
// returned plaintext must be delivered to the customer and then dropped.
func (g *Gate) Issue(ctx context.Context, bookingID uuid.UUID) (string, error) {
	code, err := generateNumericCode(Digits)
	if err != nil {
		return "", fmt.Errorf("failed to generate start code: %w", err)
	}

	hash, err := g.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash start code: %w", err)
	}

	if err := g.bookings.SetStartOTP(ctx, bookingID, hash, g.now()); err != nil {
		return "", fmt.Errorf("failed to store start code: %w", err)
	}
	return code, nil
}

// Reissue replaces the stored hash with a new code. The old code becomes
// permanently invalid. Rejected once verification has happened.
func (g *Gate) Reissue(ctx context.Context, booking *model.Booking) (string, error) {
	if booking.StartOTPVerifiedAt != nil {
		return "", ErrAlreadyVerified
	}
	return g.Issue(ctx, booking.ID)
}

// Verify checks the candidate code against the stored hash and, on success,
// advances the booking to STARTED through a conditional write. The write is
// the serialization point: if a concurrent verifier won, the caller sees
// ErrAlreadyVerified even with the correct code.
func (g *Gate) Verify(ctx context.Context, booking *model.Booking, candidate string) error {
	if booking.StartOTPVerifiedAt != nil {
		return ErrAlreadyVerified
	}
	if booking.Status != model.BookingStatusAccepted {
		return ErrInvalidState
	}
	if booking.StartOTPHash == nil {
		return ErrNotIssued
	}
	if g.ttl > 0 && booking.StartOTPGeneratedAt != nil {
		if g.now().Sub(*booking.StartOTPGeneratedAt) > g.ttl {
			return ErrExpired
		}
	}

	if err := g.hasher.Compare(*booking.StartOTPHash, strings.TrimSpace(candidate)); err != nil {
		return ErrInvalidCode
	}

	ok, err := g.bookings.MarkStarted(ctx, booking.ID, g.now())
	if err != nil {
		return fmt.Errorf("failed to mark booking started: %w", err)
	}
	if !ok {
		return ErrAlreadyVerified
	}
	return nil
}

func generateNumericCode(digits int) (string, error) {
	min := int64(1)
	for i := 1; i < digits; i++ {
		min *= 10
	}
	span := min*10 - min

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+min), nil
}
