package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"wb-aggregator/internal/model"
)

var (
	ErrMissingHash    = errors.New("init data has no hash")
	ErrInvalidHash    = errors.New("init data signature mismatch")
	ErrExpired        = errors.New("init data expired")
	ErrMissingUser    = errors.New("init data has no user")
	ErrMalformedInput = errors.New("malformed init data")
)

// webAppKey is the HMAC key Telegram uses to derive the init data secret.
const webAppKey = "WebAppData"

// InitData is the parsed Telegram WebApp launch payload.
type InitData struct {
	User     model.TelegramUser
	AuthDate time.Time
	QueryID  string
	StartApp string
}

// Validate checks the signature and age of raw init data and parses it.
// A zero maxAge disables the age check.
func Validate(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}

	expected := Sign(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return nil, ErrInvalidHash
	}

	data, err := parse(values)
	if err != nil {
		return nil, err
	}

	if maxAge > 0 && now.Sub(data.AuthDate) > maxAge {
		return nil, ErrExpired
	}

	return data, nil
}

// Parse reads init data without checking the signature.
func Parse(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return parse(values)
}

// Sign computes the hex signature Telegram attaches to init data: an
// HMAC-SHA256 over the sorted key=value lines (hash excluded), keyed with
// HMAC-SHA256("WebAppData", botToken).
func Sign(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte(webAppKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	return hex.EncodeToString(mac.Sum(nil))
}

func parse(values url.Values) (*InitData, error) {
	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, ErrMissingUser
	}

	var user model.TelegramUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrMalformedInput, err)
	}
	if user.ID == 0 {
		return nil, ErrMissingUser
	}

	data := &InitData{
		User:     user,
		QueryID:  values.Get("query_id"),
		StartApp: values.Get("start_param"),
	}

	if v := values.Get("auth_date"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: auth_date: %v", ErrMalformedInput, err)
		}
		data.AuthDate = time.Unix(secs, 0).UTC()
	}

	return data, nil
}
