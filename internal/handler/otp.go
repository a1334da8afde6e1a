package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func resetPasswordOTPKey(email string) string {
	return fmt.Sprintf("otp_%s_reset_password", email)
}

func changeEmailOTPKey(accountID, newEmail string) string {
	return fmt.Sprintf("otp_%s_change_email_to_%s", accountID, newEmail)
}

func (h *Handler) redisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationTimeout)*time.Second)
}

func (h *Handler) saveOTP(ctx context.Context, key, otp string) error {
	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	return h.redisClient.Set(ctx, key, otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err()
}

// checkOTP reports whether otp matches the stored code. A missing or expired code is a mismatch.
func (h *Handler) checkOTP(ctx context.Context, key, otp string) (bool, error) {
	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	stored, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(otp)) == 1, nil
}

func (h *Handler) deleteOTP(ctx context.Context, key string) error {
	ctx, cancel := h.redisContext(ctx)
	defer cancel()

	return h.redisClient.Del(ctx, key).Err()
}

// otpExpirationMinutes is what mails show; the configuration is in seconds.
func (h *Handler) otpExpirationMinutes() int {
	return h.config.OTP.Expiration / 60
}
