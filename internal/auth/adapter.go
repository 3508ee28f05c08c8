package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"

	"github.com/bher20/solarquote/internal/storage"
)

// Adapter persists casbin policies through storage.Storage. Policies are
// written incrementally, so SavePolicy is unsupported.
type Adapter struct {
	storage storage.Storage
}

func NewAdapter(s storage.Storage) *Adapter {
	return &Adapter{storage: s}
}

func ruleFields(r storage.CasbinRule) []string {
	return []string{r.V0, r.V1, r.V2, r.V3, r.V4, r.V5}
}

func ruleFromSlice(ptype string, values []string) storage.CasbinRule {
	r := storage.CasbinRule{PType: ptype}
	dst := []*string{&r.V0, &r.V1, &r.V2, &r.V3, &r.V4, &r.V5}
	for i, v := range values {
		if i >= len(dst) {
			break
		}
		*dst[i] = v
	}
	return r
}

func ruleLine(r storage.CasbinRule) string {
	parts := []string{r.PType}
	for _, v := range ruleFields(r) {
		if v == "" {
			break
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	rules, err := a.storage.LoadCasbinRules(context.Background())
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := persist.LoadPolicyLine(ruleLine(r), m); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) SavePolicy(m model.Model) error {
	return errors.New("auth adapter: SavePolicy not supported")
}

func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.storage.AddCasbinRule(context.Background(), ruleFromSlice(ptype, rule))
}

func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.storage.RemoveCasbinRule(context.Background(), ruleFromSlice(ptype, rule))
}

// RemoveFilteredPolicy removes every stored rule of ptype whose fields,
// starting at fieldIndex, equal fieldValues. Empty filter values match anything.
func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	ctx := context.Background()
	rules, err := a.storage.LoadCasbinRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.PType != ptype || !matchesFilter(ruleFields(r), fieldIndex, fieldValues) {
			continue
		}
		r.ID = 0
		if err := a.storage.RemoveCasbinRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(fields []string, fieldIndex int, values []string) bool {
	for i, v := range values {
		idx := fieldIndex + i
		if idx >= len(fields) {
			return false
		}
		if v != "" && fields[idx] != v {
			return false
		}
	}
	return true
}
