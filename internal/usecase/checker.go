package usecase

import (
	"context"
	"fmt"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"
	"roomsync-service/pkg/metrics"
	"roomsync-service/pkg/utils"
)

// AvailabilityChecker answers "can this room be booked for [check-in,
// check-out)" by walking calendar days and effective restrictions
type AvailabilityChecker struct {
	availabilityRepo repository.AvailabilityRepository
	rateRepo         repository.RateRepository
	resolver         *RestrictionResolver
	metrics          *metrics.Metrics
	logger           logger.Logger
}

// NewAvailabilityChecker creates a new availability checker
func NewAvailabilityChecker(
	availabilityRepo repository.AvailabilityRepository,
	rateRepo repository.RateRepository,
	resolver *RestrictionResolver,
	m *metrics.Metrics,
	log logger.Logger,
) *AvailabilityChecker {
	return &AvailabilityChecker{
		availabilityRepo: availabilityRepo,
		rateRepo:         rateRepo,
		resolver:         resolver,
		metrics:          m,
		logger:           log,
	}
}

// CheckRequest identifies the stay to evaluate
type CheckRequest struct {
	TenantID   string
	PropertyID string
	RoomTypeID string
	RoomID     string
	CheckIn    time.Time
	CheckOut   time.Time
}

// CheckResult is the admit/deny decision plus total price. A deny always
// carries a human-interpretable reason and the date that caused it.
type CheckResult struct {
	Available      bool       `json:"available"`
	TotalRate      float64    `json:"totalRate"`
	Nights         int        `json:"nights"`
	BlockingReason string     `json:"blockingReason,omitempty"`
	BlockingRule   string     `json:"blockingRule,omitempty"`
	BlockingDate   *time.Time `json:"blockingDate,omitempty"`
}

func deny(rule string, date time.Time, reason string) CheckResult {
	d := date
	return CheckResult{
		Available:      false,
		BlockingReason: reason,
		BlockingRule:   rule,
		BlockingDate:   &d,
	}
}

// CheckAvailability evaluates one stay. Ordinary unavailability is a
// negative result, never an error; errors are reserved for malformed
// requests. The walk is day-outer, rule-inner and stops at the first
// violation so the reported date is always the earliest one.
func (c *AvailabilityChecker) CheckAvailability(ctx context.Context, req CheckRequest) (CheckResult, error) {
	if req.TenantID == "" {
		return CheckResult{}, entity.ErrMissingTenant
	}

	checkIn := utils.ToDay(req.CheckIn)
	checkOut := utils.ToDay(req.CheckOut)
	if !checkOut.After(checkIn) {
		return CheckResult{}, entity.ErrInvalidDateRange
	}

	if c.metrics != nil {
		c.metrics.AvailabilityChecks.Inc()
	}

	nights := utils.Nights(checkIn, checkOut)
	total := 0.0

	for i, d := range nights {
		day, err := c.availabilityRepo.GetDay(ctx, req.TenantID, req.RoomID, d)
		if err != nil {
			return CheckResult{}, err
		}
		if day == nil {
			// No row means the night is open with no overrides
			day = entity.DefaultOpenDay(req.TenantID, req.PropertyID, req.RoomID, d)
		}

		if reason := day.BlocksStay(); reason != "" {
			return c.denied(deny(reason, d, fmt.Sprintf("room is %s on %s", reason, d.Format("2006-01-02")))), nil
		}

		stopSell, err := c.resolveKind(ctx, req, d, entity.KindStopSell)
		if err != nil {
			return CheckResult{}, err
		}
		if stopSell != nil && stopSell.Flag {
			return c.denied(deny(entity.KindStopSell, d, fmt.Sprintf("sales are stopped on %s", d.Format("2006-01-02")))), nil
		}

		// Arrival closure only matters on the first night; inferring this
		// from loop indices elsewhere has broken under refactors, so the
		// boundary is spelled out here.
		if i == 0 {
			if day.ClosedToArrival {
				return c.denied(deny(entity.KindClosedToArrival, d, fmt.Sprintf("check-in is closed on %s", d.Format("2006-01-02")))), nil
			}
			cta, err := c.resolveKind(ctx, req, d, entity.KindClosedToArrival)
			if err != nil {
				return CheckResult{}, err
			}
			if cta != nil && cta.Flag {
				return c.denied(deny(entity.KindClosedToArrival, d, fmt.Sprintf("check-in is closed on %s", d.Format("2006-01-02")))), nil
			}
		}

		rate := day.RateOverride
		if rate == nil {
			base, err := c.rateRepo.BaseRate(ctx, req.TenantID, req.RoomTypeID, d)
			if err != nil {
				return CheckResult{}, err
			}
			if base == nil {
				return c.denied(deny("no_rate", d, fmt.Sprintf("no rate is configured for %s", d.Format("2006-01-02")))), nil
			}
			rate = &base.NightlyRate
		}
		total += *rate
	}

	// Departure closure applies to the check-out date itself
	checkoutDay, err := c.availabilityRepo.GetDay(ctx, req.TenantID, req.RoomID, checkOut)
	if err != nil {
		return CheckResult{}, err
	}
	if checkoutDay != nil && checkoutDay.ClosedToDeparture {
		return c.denied(deny(entity.KindClosedToDeparture, checkOut, fmt.Sprintf("check-out is closed on %s", checkOut.Format("2006-01-02")))), nil
	}
	ctd, err := c.resolveKind(ctx, req, checkOut, entity.KindClosedToDeparture)
	if err != nil {
		return CheckResult{}, err
	}
	if ctd != nil && ctd.Flag {
		return c.denied(deny(entity.KindClosedToDeparture, checkOut, fmt.Sprintf("check-out is closed on %s", checkOut.Format("2006-01-02")))), nil
	}

	if result, violated, err := c.checkStayBounds(ctx, req, checkIn, len(nights)); err != nil {
		return CheckResult{}, err
	} else if violated {
		return c.denied(result), nil
	}

	if result, violated, err := c.checkAdvanceBounds(ctx, req, checkIn); err != nil {
		return CheckResult{}, err
	} else if violated {
		return c.denied(result), nil
	}

	return CheckResult{
		Available: true,
		TotalRate: total,
		Nights:    len(nights),
	}, nil
}

// checkStayBounds validates the stay length against the effective min/max
// stay at the check-in date, with the day-level overrides winning over
// resolved restrictions
func (c *AvailabilityChecker) checkStayBounds(ctx context.Context, req CheckRequest, checkIn time.Time, nights int) (CheckResult, bool, error) {
	var minStay, maxStay *int

	day, err := c.availabilityRepo.GetDay(ctx, req.TenantID, req.RoomID, checkIn)
	if err != nil {
		return CheckResult{}, false, err
	}
	if day != nil {
		minStay = day.MinStay
		maxStay = day.MaxStay
	}

	if minStay == nil {
		r, err := c.resolveKind(ctx, req, checkIn, entity.KindMinStay)
		if err != nil {
			return CheckResult{}, false, err
		}
		if r != nil {
			minStay = &r.Value
		}
	}
	if maxStay == nil {
		r, err := c.resolveKind(ctx, req, checkIn, entity.KindMaxStay)
		if err != nil {
			return CheckResult{}, false, err
		}
		if r != nil {
			maxStay = &r.Value
		}
	}

	if minStay != nil && nights < *minStay {
		return deny(entity.KindMinStay, checkIn,
			fmt.Sprintf("stay of %d nights is below the minimum of %d for %s", nights, *minStay, checkIn.Format("2006-01-02"))), true, nil
	}
	if maxStay != nil && *maxStay > 0 && nights > *maxStay {
		return deny(entity.KindMaxStay, checkIn,
			fmt.Sprintf("stay of %d nights exceeds the maximum of %d for %s", nights, *maxStay, checkIn.Format("2006-01-02"))), true, nil
	}
	return CheckResult{}, false, nil
}

// checkAdvanceBounds validates the booking lead time against the effective
// advance-booking restrictions at the check-in date
func (c *AvailabilityChecker) checkAdvanceBounds(ctx context.Context, req CheckRequest, checkIn time.Time) (CheckResult, bool, error) {
	leadDays := utils.NightsBetween(time.Now(), checkIn)

	minAdv, err := c.resolveKind(ctx, req, checkIn, entity.KindMinAdvanceBooking)
	if err != nil {
		return CheckResult{}, false, err
	}
	if minAdv != nil && leadDays < minAdv.Value {
		return deny(entity.KindMinAdvanceBooking, checkIn,
			fmt.Sprintf("bookings for %s require at least %d days notice", checkIn.Format("2006-01-02"), minAdv.Value)), true, nil
	}

	maxAdv, err := c.resolveKind(ctx, req, checkIn, entity.KindMaxAdvanceBooking)
	if err != nil {
		return CheckResult{}, false, err
	}
	if maxAdv != nil && maxAdv.Value > 0 && leadDays > maxAdv.Value {
		return deny(entity.KindMaxAdvanceBooking, checkIn,
			fmt.Sprintf("bookings for %s open %d days before arrival", checkIn.Format("2006-01-02"), maxAdv.Value)), true, nil
	}
	return CheckResult{}, false, nil
}

func (c *AvailabilityChecker) resolveKind(ctx context.Context, req CheckRequest, date time.Time, kind string) (*entity.Restriction, error) {
	return c.resolver.Resolve(ctx, ResolveQuery{
		TenantID:   req.TenantID,
		PropertyID: req.PropertyID,
		RoomTypeID: req.RoomTypeID,
		RoomID:     req.RoomID,
		Date:       date,
		Kind:       kind,
	})
}

func (c *AvailabilityChecker) denied(result CheckResult) CheckResult {
	if c.metrics != nil {
		c.metrics.BookingDenials.WithLabelValues(result.BlockingRule).Inc()
	}
	c.logger.Debug("Availability check denied",
		"rule", result.BlockingRule,
		"reason", result.BlockingReason)
	return result
}
