package conditions

import (
	"errors"
	"testing"

	"github.com/mr-karan/hawkalert/pkg/models"
)

type mapRegistry map[string]string

func (r mapRegistry) DataID(column string) (string, bool) {
	id, ok := r[column]
	return id, ok
}

func testRegistry() mapRegistry {
	reg := mapRegistry{
		ColumnHeapMax:          "WildFly Memory Metrics~Heap Max",
		ColumnNonHeapCommitted: "WildFly Memory Metrics~NonHeap Committed",
	}
	for _, m := range models.EvalMethods() {
		reg[string(m)] = "id~" + string(m)
	}
	return reg
}

var thresholdMethods = []models.EvalMethod{
	models.EvalMethodActiveWebSessions,
	models.EvalMethodExpiredWebSessions,
	models.EvalMethodRejectedWebSessions,
	models.EvalMethodDSAvailableCount,
	models.EvalMethodDSInUseCount,
	models.EvalMethodDSTimedOut,
	models.EvalMethodDSAverageGetTime,
	models.EvalMethodDSAverageCreateTime,
	models.EvalMethodDSMaxWaitTime,
}

func TestBuild_ThresholdMethods(t *testing.T) {
	ops := []struct {
		symbol string
		want   models.Operator
	}{
		{"<", models.OperatorLT},
		{"<=", models.OperatorLTE},
		{"=", models.OperatorLTE},
		{">", models.OperatorGT},
		{">=", models.OperatorGTE},
	}

	b := NewBuilder(testRegistry())
	for _, method := range thresholdMethods {
		for _, op := range ops {
			t.Run(string(method)+op.symbol, func(t *testing.T) {
				plan, err := b.Build(method, models.AlertOptions{
					models.OptionOperator:  op.symbol,
					models.OptionThreshold: "42",
				})
				if err != nil {
					t.Fatalf("Build() error = %v", err)
				}
				if len(plan.Conditions) != 1 {
					t.Fatalf("Build() got %d conditions, want 1", len(plan.Conditions))
				}
				c := plan.Conditions[0]
				if c.Type != models.ConditionTypeThreshold {
					t.Errorf("type = %s, want THRESHOLD", c.Type)
				}
				if c.Operator != op.want {
					t.Errorf("operator = %s, want %s", c.Operator, op.want)
				}
				if c.Threshold == nil || *c.Threshold != 42 {
					t.Errorf("threshold = %v, want 42", c.Threshold)
				}
				if c.TriggerMode != models.TriggerModeFiring {
					t.Errorf("trigger mode = %s, want FIRING", c.TriggerMode)
				}
				if c.DataID != "id~"+string(method) {
					t.Errorf("data id = %q", c.DataID)
				}
				if plan.FiringMatch != models.FiringMatchAll {
					t.Errorf("firing match = %s, want ALL", plan.FiringMatch)
				}
				if plan.Context[models.ContextMetricPrefix] != "hm_g_" {
					t.Errorf("context prefix = %q, want hm_g_", plan.Context[models.ContextMetricPrefix])
				}
			})
		}
	}
}

func TestBuild_TimedOutScenario(t *testing.T) {
	plan, err := Build(testRegistry(), models.EvalMethodDSTimedOut, models.AlertOptions{
		"mw_operator":        ">",
		"value_mw_threshold": "5",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(plan.Conditions) != 1 {
		t.Fatalf("got %d conditions, want 1", len(plan.Conditions))
	}
	c := plan.Conditions[0]
	if c.Operator != models.OperatorGT || *c.Threshold != 5 {
		t.Errorf("got %s %v, want GT 5", c.Operator, *c.Threshold)
	}
}

func TestBuild_Compare(t *testing.T) {
	tests := []struct {
		method    models.EvalMethod
		companion string
	}{
		{models.EvalMethodHeapUsed, ColumnHeapMax},
		{models.EvalMethodNonHeapUsed, ColumnNonHeapCommitted},
	}

	reg := testRegistry()
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			plan, err := Build(reg, tt.method, models.AlertOptions{
				models.OptionGreaterThan: "80",
				models.OptionLessThan:    "20",
			})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if plan.FiringMatch != models.FiringMatchAny {
				t.Errorf("firing match = %s, want ANY", plan.FiringMatch)
			}
			if plan.Context[models.ContextMetricType] != "gauge" {
				t.Errorf("context type = %q, want gauge", plan.Context[models.ContextMetricType])
			}
			if len(plan.Conditions) != 2 {
				t.Fatalf("got %d conditions, want 2", len(plan.Conditions))
			}

			want := []struct {
				op   models.Operator
				mult float64
			}{
				{models.OperatorGT, 0.8},
				{models.OperatorLT, 0.2},
			}
			for i, w := range want {
				c := plan.Conditions[i]
				if c.Type != models.ConditionTypeCompare {
					t.Errorf("[%d] type = %s, want COMPARE", i, c.Type)
				}
				if c.Operator != w.op {
					t.Errorf("[%d] operator = %s, want %s", i, c.Operator, w.op)
				}
				if c.Data2Multiplier == nil || *c.Data2Multiplier != w.mult {
					t.Errorf("[%d] multiplier = %v, want %v", i, c.Data2Multiplier, w.mult)
				}
				if c.DataID != reg[string(tt.method)] || c.Data2ID != reg[tt.companion] {
					t.Errorf("[%d] data ids = %q/%q", i, c.DataID, c.Data2ID)
				}
				if c.Threshold != nil {
					t.Errorf("[%d] compare condition carries a threshold", i)
				}
			}
		})
	}
}

func TestBuild_Rate(t *testing.T) {
	plan, err := Build(testRegistry(), models.EvalMethodAccumulatedGCDuration, models.AlertOptions{
		models.OptionOperator:         ">=",
		models.OptionGarbageCollector: 150.9,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(plan.Conditions) != 1 || plan.Conditions[0].Type != models.ConditionTypeRate {
		t.Fatalf("want a single RATE condition, got %+v", plan.Conditions)
	}
	if got := *plan.Conditions[0].Threshold; got != 150 {
		t.Errorf("threshold = %v, want 150", got)
	}
	if plan.Conditions[0].Operator != models.OperatorGTE {
		t.Errorf("operator = %s, want GTE", plan.Conditions[0].Operator)
	}
	if plan.Context[models.ContextMetricType] != "counter" || plan.Context[models.ContextMetricPrefix] != "hm_c_" {
		t.Errorf("context = %v, want counter/hm_c_", plan.Context)
	}
	if plan.FiringMatch != models.FiringMatchAll {
		t.Errorf("firing match = %s, want ALL", plan.FiringMatch)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		registry MetricRegistry
		method   models.EvalMethod
		opts     models.AlertOptions
		wantErr  error
	}{
		{
			name:     "unknown eval method",
			registry: testRegistry(),
			method:   "mw_bogus",
			opts:     models.AlertOptions{},
			wantErr:  ErrUnknownEvalMethod,
		},
		{
			name:     "unknown operator",
			registry: testRegistry(),
			method:   models.EvalMethodDSInUseCount,
			opts:     models.AlertOptions{models.OptionOperator: "!=", models.OptionThreshold: "1"},
			wantErr:  ErrUnknownOperator,
		},
		{
			name:     "missing operator",
			registry: testRegistry(),
			method:   models.EvalMethodDSInUseCount,
			opts:     models.AlertOptions{models.OptionThreshold: "1"},
			wantErr:  ErrMissingOption,
		},
		{
			name:     "non numeric threshold",
			registry: testRegistry(),
			method:   models.EvalMethodDSInUseCount,
			opts:     models.AlertOptions{models.OptionOperator: ">", models.OptionThreshold: "lots"},
			wantErr:  ErrInvalidOption,
		},
		{
			name:     "threshold beyond int64",
			registry: testRegistry(),
			method:   models.EvalMethodDSTimedOut,
			opts:     models.AlertOptions{models.OptionOperator: ">", models.OptionThreshold: "1e20"},
			wantErr:  ErrInvalidOption,
		},
		{
			name:     "threshold at 2^63",
			registry: testRegistry(),
			method:   models.EvalMethodDSTimedOut,
			opts:     models.AlertOptions{models.OptionOperator: ">", models.OptionThreshold: "9223372036854775808"},
			wantErr:  ErrInvalidOption,
		},
		{
			name:     "negative threshold beyond int64",
			registry: testRegistry(),
			method:   models.EvalMethodAccumulatedGCDuration,
			opts:     models.AlertOptions{models.OptionOperator: "<", models.OptionGarbageCollector: -1e30},
			wantErr:  ErrInvalidOption,
		},
		{
			name:     "missing percentage",
			registry: testRegistry(),
			method:   models.EvalMethodHeapUsed,
			opts:     models.AlertOptions{models.OptionGreaterThan: "90"},
			wantErr:  ErrMissingOption,
		},
		{
			name:     "metric missing from registry",
			registry: mapRegistry{},
			method:   models.EvalMethodDSTimedOut,
			opts:     models.AlertOptions{models.OptionOperator: ">", models.OptionThreshold: "5"},
			wantErr:  ErrMetricNotConfigured,
		},
		{
			name:     "companion metric missing from registry",
			registry: mapRegistry{string(models.EvalMethodHeapUsed): "heap"},
			method:   models.EvalMethodHeapUsed,
			opts:     models.AlertOptions{models.OptionGreaterThan: "90", models.OptionLessThan: "10"},
			wantErr:  ErrMetricNotConfigured,
		},
		{
			name:    "nil registry",
			method:  models.EvalMethodDSTimedOut,
			opts:    models.AlertOptions{models.OptionOperator: ">", models.OptionThreshold: "5"},
			wantErr: ErrMetricNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Build(tt.registry, tt.method, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Build() error = %v, want %v", err, tt.wantErr)
			}
			if plan != nil {
				t.Errorf("Build() plan = %+v, want nil", plan)
			}
		})
	}
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Operator
		wantErr bool
	}{
		{"<", models.OperatorLT, false},
		{"<=", models.OperatorLTE, false},
		{"=", models.OperatorLTE, false},
		{">", models.OperatorGT, false},
		{">=", models.OperatorGTE, false},
		{" > ", models.OperatorGT, false},
		{"==", "", true},
		{"", "", true},
		{"gt", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOperator(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOperator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOperator(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumberOption_Types(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{"string", "7", 7},
		{"padded string", " 7 ", 7},
		{"float string", "7.9", 7},
		{"int", 7, 7},
		{"int64", int64(7), 7},
		{"float64", 7.2, 7},
		{"negative float", -7.8, -7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intOption(models.AlertOptions{"k": tt.raw}, "k")
			if err != nil {
				t.Fatalf("intOption() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("intOption() = %d, want %d", got, tt.want)
			}
		})
	}
}
