// Package optimization provides the data structures exchanged with the
// optimizer backend.
package optimization

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/magnitude"
)

var validate = validator.New()

// ErrInvalidRequest wraps every validation failure of a Request.
var ErrInvalidRequest = errors.New("invalid optimization request")

// Request holds the parameters of one optimization run.
type Request struct {
	CurrentMoney   float64 `json:"current_money" yaml:"current_money" validate:"gte=0"`
	CurrentGold    float64 `json:"current_gold" yaml:"current_gold" validate:"gte=0"`
	TradeX         float64 `json:"trade_x" yaml:"trade_x" validate:"gte=0"`
	TradeY         float64 `json:"trade_y" yaml:"trade_y" validate:"gte=0"`
	SessionSeconds int     `json:"session_seconds" yaml:"session_seconds" validate:"gt=0"`
}

// DefaultRequest returns the parameters used when nothing was saved.
func DefaultRequest() Request {
	return Request{
		CurrentMoney:   constants.DefaultMoney,
		CurrentGold:    constants.DefaultGold,
		TradeX:         constants.DefaultTradeX,
		TradeY:         constants.DefaultTradeY,
		SessionSeconds: constants.DefaultSessionSeconds,
	}
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Params is the display form of a Request as typed by the user, e.g. "2.5m".
type Params struct {
	Money  string `json:"money" yaml:"money"`
	Gold   string `json:"gold" yaml:"gold"`
	TradeX string `json:"trade_x" yaml:"trade_x"`
	TradeY string `json:"trade_y" yaml:"trade_y"`
}

// ParamsFromRequest renders a request into its display strings.
func ParamsFromRequest(r Request) Params {
	return Params{
		Money:  magnitude.Format(r.CurrentMoney),
		Gold:   magnitude.Format(r.CurrentGold),
		TradeX: magnitude.Format(r.TradeX),
		TradeY: magnitude.Format(r.TradeY),
	}
}

// Request converts the display strings into a request. Unparseable values
// become 0.
func (p Params) Request() Request {
	return Request{
		CurrentMoney:   magnitude.Normalize(p.Money),
		CurrentGold:    magnitude.Normalize(p.Gold),
		TradeX:         magnitude.Normalize(p.TradeX),
		TradeY:         magnitude.Normalize(p.TradeY),
		SessionSeconds: constants.DefaultSessionSeconds,
	}
}

// Apply returns base with every non-empty field of p normalized into it.
// Fields left empty keep their exact base value.
func (p Params) Apply(base Request) Request {
	apply := func(raw string, dst *float64) {
		if strings.TrimSpace(raw) != "" {
			*dst = magnitude.Normalize(raw)
		}
	}
	apply(p.Money, &base.CurrentMoney)
	apply(p.Gold, &base.CurrentGold)
	apply(p.TradeX, &base.TradeX)
	apply(p.TradeY, &base.TradeY)
	return base
}

// Result is the upgrade plan computed by the backend.
type Result struct {
	TotalIncomeEarned    float64       `json:"total_income_earned" yaml:"total_income_earned"`
	FinalIncomePerSecond float64       `json:"final_income_per_second" yaml:"final_income_per_second"`
	UpgradePlan          []UpgradeStep `json:"upgrade_plan" yaml:"upgrade_plan"`
}

// Empty indicates whether the plan has no upgrades.
func (r Result) Empty() bool {
	return len(r.UpgradePlan) == 0
}

// UpgradeStep is a single building upgrade in the plan.
type UpgradeStep struct {
	BuildingID     int     `json:"building_id,omitempty" yaml:"building_id,omitempty"`
	BuildingName   string  `json:"building_name" yaml:"building_name"`
	UpgradeTime    int     `json:"upgrade_time" yaml:"upgrade_time"` // seconds since session start
	NewTotalIncome float64 `json:"new_total_income" yaml:"new_total_income"`
	CurrLevel      int     `json:"curr_level" yaml:"curr_level"`
}
