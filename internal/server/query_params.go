package server

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/leasehold/internal/billingperiod"
)

const monthLayout = "2006-01"

var errInvalidValue = errors.New("invalid_value")

func pathID(c *gin.Context) (snowflake.ID, error) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return id, nil
}

func parseSnowflakeID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, errInvalidValue
	}
	return parsed, nil
}

func parseOptionalSnowflakeID(value *string) (*snowflake.ID, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseSnowflakeID(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339 and drops the time of day.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse(billingperiod.DateLayout, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return billingperiod.Date(parsed), nil
	}
	return time.Time{}, errInvalidValue
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseMonth accepts YYYY-MM as well as any full date inside the month.
func parseMonth(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if parsed, err := time.Parse(monthLayout, trimmed); err == nil {
		return parsed, nil
	}
	return parseDate(trimmed)
}

func parseOptionalMonth(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := parseMonth(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
