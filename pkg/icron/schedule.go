// Package icron reports when a cron expression last fired and will next
// fire, used when logging the library rescan schedule.
package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes the firing times of a cron expression around a
// reference instant. Last is zero when no firing falls within the
// lookback window.
type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// lookback bounds the backwards search for the previous firing.
const lookback = 366 * 24 * time.Hour

// GetTriggerInfo parses cronExpr and reports its previous and upcoming
// firing times relative to refTime. Standard five-field expressions are
// accepted; a leading seconds field is optional.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
		cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	// Walk backwards an hour at a time until a firing at or before
	// refTime turns up.
	searchStart := refTime.Add(-time.Minute)
	for back := time.Duration(0); back <= lookback; back += time.Hour {
		candidate := schedule.Next(searchStart.Add(-back))
		if !candidate.After(refTime) {
			info.Last = candidate
			info.TimeSinceLast = refTime.Sub(candidate)
			break
		}
	}

	return info, nil
}
