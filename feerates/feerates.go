// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package feerates

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
)

// Priority selects one of the fee rate tiers.
type Priority string

const (
	// PriorityLow defines the slowest confirmation tier.
	PriorityLow Priority = "low"
	// PriorityMedium defines the default confirmation tier.
	PriorityMedium Priority = "medium"
	// PriorityHigh defines the fastest confirmation tier.
	PriorityHigh Priority = "high"
)

// ErrUnknownPriority defines that the priority value is not one of the tiers.
var ErrUnknownPriority = errors.New("unknown fee priority")

// ParsePriority parses a Priority from its textual form.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}

	return "", ErrUnknownPriority
}

// FallbackFeeRate is the conservative satoshi per vByte rate used when the
// live estimate source is unavailable: roughly 600 satoshi for a typical
// single-input deposit. It is an approximation, never a guarantee, and tiers
// built from it are marked Degraded.
const FallbackFeeRate uint64 = 3

// Tiers holds satoshi per vByte rates per priority. Degraded marks rates
// built from the fallback instead of a live estimate, so callers can present
// the fee as approximate.
type Tiers struct {
	Low      uint64
	Medium   uint64
	High     uint64
	Degraded bool
}

// Rate returns the rate for the priority, defaulting to medium.
func (t Tiers) Rate(priority Priority) uint64 {
	switch priority {
	case PriorityLow:
		return t.Low
	case PriorityHigh:
		return t.High
	}

	return t.Medium
}

// Source supplies raw low/medium/high satoshi per vByte estimates.
type Source interface {
	FeeEstimates(ctx context.Context) (low, medium, high float64, err error)
}

// Estimator converts raw estimates into normalized fee tiers, falling back to
// a fixed conservative rate when the source fails. Availability is preferred
// over precision: a deposit attempt is never blocked on a fee oracle.
type Estimator struct {
	source Source
	log    *zap.Logger
}

// NewEstimator is a constructor for Estimator.
func NewEstimator(source Source, log *zap.Logger) *Estimator {
	return &Estimator{
		source: source,
		log:    log.Named("feerates"),
	}
}

// Tiers returns the current fee tiers. The result is always usable: on
// source failure the fallback rate is returned with Degraded set.
func (e *Estimator) Tiers(ctx context.Context) Tiers {
	low, medium, high, err := e.source.FeeEstimates(ctx)
	if err != nil {
		e.log.Warn("fee estimate source unavailable, using fallback rate",
			zap.Uint64("fallback_sat_per_vb", FallbackFeeRate), zap.Error(err))

		return Tiers{Low: FallbackFeeRate, Medium: FallbackFeeRate, High: FallbackFeeRate, Degraded: true}
	}

	return Normalize(low, medium, high)
}

// Normalize rounds rates up to whole satoshi per vByte, floors them at one,
// and enforces tier monotonicity: low ≤ medium ≤ high for any snapshot.
func Normalize(low, medium, high float64) Tiers {
	t := Tiers{Low: ceilRate(low), Medium: ceilRate(medium), High: ceilRate(high)}
	if t.Medium < t.Low {
		t.Medium = t.Low
	}
	if t.High < t.Medium {
		t.High = t.Medium
	}

	return t
}

func ceilRate(rate float64) uint64 {
	if rate <= 1 || math.IsNaN(rate) {
		return 1
	}

	return uint64(math.Ceil(rate))
}
