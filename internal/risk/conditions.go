package risk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

// Custom rule conditions are "<field> <op> <value>" clauses joined by "&&".
// An empty condition or "always" matches every trade.

var numericFields = map[string]bool{
	"price_impact": true,
	"slippage":     true,
	"liquidity":    true,
	"hops":         true,
	"amount_in":    true, // whole native-token units
	"chain_id":     true,
}

var stringFields = map[string]bool{
	"mode":      true,
	"token_in":  true,
	"token_out": true,
	"router":    true,
	"chain":     true,
}

type clause struct {
	field string
	op    string
	num   float64
	str   string
}

type condition struct {
	clauses []clause
}

func parseCondition(s string) (*condition, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "always") {
		return &condition{}, nil
	}

	c := &condition{}
	for _, part := range strings.Split(s, "&&") {
		tokens := strings.Fields(part)
		if len(tokens) != 3 {
			return nil, fmt.Errorf("condition clause %q must be \"<field> <op> <value>\"", strings.TrimSpace(part))
		}
		cl := clause{field: tokens[0], op: tokens[1]}

		switch {
		case numericFields[cl.field]:
			switch cl.op {
			case ">", ">=", "<", "<=", "==", "!=":
			default:
				return nil, fmt.Errorf("unsupported operator %q", cl.op)
			}
			v, err := strconv.ParseFloat(tokens[2], 64)
			if err != nil {
				return nil, fmt.Errorf("value %q for %s is not a number", tokens[2], cl.field)
			}
			cl.num = v
		case stringFields[cl.field]:
			if cl.op != "==" && cl.op != "!=" {
				return nil, fmt.Errorf("field %s only supports == and !=", cl.field)
			}
			cl.str = tokens[2]
		default:
			return nil, fmt.Errorf("unknown condition field %q", cl.field)
		}
		c.clauses = append(c.clauses, cl)
	}
	return c, nil
}

func (c *condition) matches(plan *types.TradePlan, m TradeMetrics) bool {
	for _, cl := range c.clauses {
		if !cl.matches(plan, m) {
			return false
		}
	}
	return true
}

func (cl clause) matches(plan *types.TradePlan, m TradeMetrics) bool {
	if numericFields[cl.field] {
		var v float64
		switch cl.field {
		case "price_impact":
			v = m.PriceImpactPct
		case "slippage":
			v = m.SlippagePct
		case "liquidity":
			v = m.LiquidityUSD
		case "hops":
			v = float64(m.Hops)
		case "amount_in":
			v = plan.AmountInEther()
		case "chain_id":
			v = float64(plan.Chain.ChainID)
		}
		switch cl.op {
		case ">":
			return v > cl.num
		case ">=":
			return v >= cl.num
		case "<":
			return v < cl.num
		case "<=":
			return v <= cl.num
		case "==":
			return v == cl.num
		default:
			return v != cl.num
		}
	}

	var v string
	switch cl.field {
	case "mode":
		v = string(plan.Mode)
	case "token_in":
		v = types.NormalizeAddress(plan.TokenIn)
	case "token_out":
		v = types.NormalizeAddress(plan.TokenOut)
	case "router":
		v = types.NormalizeAddress(plan.Router)
	case "chain":
		v = plan.Chain.Name
	}
	want := cl.str
	if strings.HasPrefix(cl.field, "token_") || cl.field == "router" {
		want = types.NormalizeAddress(want)
	}
	if cl.op == "==" {
		return strings.EqualFold(v, want)
	}
	return !strings.EqualFold(v, want)
}
