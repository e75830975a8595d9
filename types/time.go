// Package types implements the domain value types shared across message
// payloads: millisecond-precision timestamps and durations, calendar dates,
// client/server clock synchronization, and the encrypted/plaintext string
// sum type used for sensitive fields.
package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/adred-codev/gatecodec/codec/record"
)

// Timestamp is a Unix timestamp with millisecond precision.
type Timestamp uint64

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UnixMilli())
}

// FromMilliseconds wraps a raw millisecond count as a Timestamp.
func FromMilliseconds(milliseconds uint64) Timestamp {
	return Timestamp(milliseconds)
}

// Diff returns the absolute Duration between two timestamps.
func (t Timestamp) Diff(other Timestamp) Duration {
	if t > other {
		return Duration(t - other)
	}
	return Duration(other - t)
}

// String returns the timestamp's millisecond count as a decimal string.
func (t Timestamp) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// ParseTimestamp parses a decimal millisecond count back into a Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Timestamp(v), nil
}

// Encode writes t as a varint field.
func (t Timestamp) Encode(w *record.Writer) {
	w.WriteUvarint(uint64(t))
}

// DecodeTimestamp reads a Timestamp field.
func DecodeTimestamp(r *record.Reader) (Timestamp, error) {
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return Timestamp(v), nil
}

// ServerTimestamp wraps a Timestamp known to have been minted by a server,
// as opposed to reported by an untrusted client. Producing one from the
// current wall clock is a server-only privilege by convention: nothing in
// this package prevents a client binary from calling ServerNow, since Go has
// no build-time equivalent of a server-only compile feature, but only
// server-side code should ever call it. NewServerTimestamp exists for
// reconstructing one from a trusted wire value on either side.
type ServerTimestamp Timestamp

// ServerNow returns the current time as a ServerTimestamp. Call this only
// from server-side code.
func ServerNow() ServerTimestamp {
	return ServerTimestamp(Now())
}

// NewServerTimestamp wraps a raw millisecond count as a ServerTimestamp.
func NewServerTimestamp(milliseconds uint64) ServerTimestamp {
	return ServerTimestamp(milliseconds)
}

// String returns the timestamp's millisecond count as a decimal string.
func (t ServerTimestamp) String() string {
	return Timestamp(t).String()
}

// Encode writes t as a varint field.
func (t ServerTimestamp) Encode(w *record.Writer) {
	Timestamp(t).Encode(w)
}

// DecodeServerTimestamp reads a ServerTimestamp field.
func DecodeServerTimestamp(r *record.Reader) (ServerTimestamp, error) {
	v, err := DecodeTimestamp(r)
	if err != nil {
		return 0, err
	}
	return ServerTimestamp(v), nil
}

// Duration is a span of time with millisecond precision.
type Duration uint64

// DurationFromMilliseconds wraps a raw millisecond count as a Duration.
func DurationFromMilliseconds(milliseconds uint64) Duration {
	return Duration(milliseconds)
}

// WholeMinutes returns the number of whole minutes in d.
func (d Duration) WholeMinutes() uint64 {
	return uint64(d) / 1000 / 60
}

// WholeHours returns the number of whole hours in d.
func (d Duration) WholeHours() uint64 {
	return d.WholeMinutes() / 60
}

// WholeDays returns the number of whole 24-hour days in d.
func (d Duration) WholeDays() uint64 {
	return d.WholeHours() / 24
}

// String formats d as HH:MM:SS.mmm.
func (d Duration) String() string {
	hours := d.WholeHours()
	minutes := d.WholeMinutes() - hours*60
	seconds := uint64(d)/1000 - hours*60*60 - minutes*60
	milliseconds := uint64(d) - (hours*60*60+minutes*60+seconds)*1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, milliseconds)
}

// Encode writes d as a varint field.
func (d Duration) Encode(w *record.Writer) {
	w.WriteUvarint(uint64(d))
}

// DecodeDuration reads a Duration field.
func DecodeDuration(r *record.Reader) (Duration, error) {
	v, err := r.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return Duration(v), nil
}

// Date is a calendar date with no time-of-day component, in UTC.
type Date struct {
	t time.Time
}

// NewDate constructs a Date from year/month/day, with month and day
// 1-indexed.
func NewDate(year int, month, day int) Date {
	return Date{t: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.t.Format("2006-01-02")
}

// Year returns the date's calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the date's calendar month, 1 through 12.
func (d Date) Month() int { return int(d.t.Month()) }

// Day returns the date's day of month, 1 through 31.
func (d Date) Day() int { return d.t.Day() }

// AddDays returns a new Date offset by the given number of days, which may
// be negative.
func (d Date) AddDays(days int) Date {
	return Date{t: d.t.AddDate(0, 0, days)}
}

// DaysFromMonday returns the zero-indexed day of week, where Monday is 0.
func (d Date) DaysFromMonday() int {
	return (int(d.t.Weekday()) + 6) % 7
}

// StartOfWeek returns the Date of the Monday at or before d.
func (d Date) StartOfWeek() Date {
	return d.AddDays(-d.DaysFromMonday())
}

// StartOfMonth returns the Date of the first day of d's month.
func (d Date) StartOfMonth() Date {
	return d.AddDays(-(d.Day() - 1))
}

// StartOfYear returns the Date of January 1st of d's year.
func (d Date) StartOfYear() Date {
	return NewDate(d.Year(), 1, 1)
}

// Diff returns the absolute Duration between two dates.
func (d Date) Diff(other Date) Duration {
	seconds := d.t.Sub(other.t).Seconds()
	if seconds < 0 {
		seconds = -seconds
	}
	return DurationFromMilliseconds(uint64(seconds) * 1000)
}

// SyncedTimestamp estimates the server's clock from a round trip sample and
// applies that offset to the local clock, letting a client report
// timestamps that agree with the server without repeatedly asking it.
type SyncedTimestamp struct {
	offsetMs int64
}

// MaxRoundTripMilliseconds is the round trip time beyond which a sync
// sample is discarded as unreliable.
const MaxRoundTripMilliseconds uint64 = 10_000

// NewSyncedTimestamp returns a SyncedTimestamp with zero offset.
func NewSyncedTimestamp() *SyncedTimestamp {
	return &SyncedTimestamp{}
}

// Adjust updates the clock offset from a server timestamp sample and the
// local send/receive times that bracketed it. Samples with a round trip
// time over MaxRoundTripMilliseconds are ignored as unreliable.
func (s *SyncedTimestamp) Adjust(serverTime ServerTimestamp, sentAt, receivedAt Timestamp) {
	rtt := receivedAt.Diff(sentAt)
	if uint64(rtt) > MaxRoundTripMilliseconds {
		return
	}
	latency := uint64(rtt) / 2
	estimatedServerTime := int64(sentAt) + int64(latency)
	s.offsetMs = int64(serverTime) - estimatedServerTime
}

// Now returns the current local time adjusted by the estimated server
// offset.
func (s *SyncedTimestamp) Now() Timestamp {
	return Timestamp(int64(Now()) + s.offsetMs)
}
