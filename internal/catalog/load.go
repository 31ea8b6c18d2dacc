package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/skyoxu/rouge/internal/card"
)

// Load error codes.
const (
	ErrCodeNotFound    = "CATALOG_NOT_FOUND"
	ErrCodeNoFiles     = "CATALOG_NO_FILES"
	ErrCodeLoadFailed  = "CATALOG_LOAD_FAILED"
	ErrCodeBuildFailed = "CATALOG_BUILD_FAILED"
	ErrCodeNoCards     = "CATALOG_NO_CARDS"
	ErrCodeBadField    = "CATALOG_BAD_FIELD"
	ErrCodeInvalidCard = "CATALOG_INVALID_CARD"
	ErrCodeDuplicateID = "CATALOG_DUPLICATE_ID"
)

// LoadError is a catalog loading failure, with the CUE position when one
// is known. Card validation failures wrap the *card.ValidationError.
type LoadError struct {
	Code    string
	Card    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Card != "" {
		msg = fmt.Sprintf("card %q: %s", e.Card, msg)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDir loads every CUE file of the package in dir.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, buildError(err)
	}
	return fromValue(value)
}

// LoadString loads a catalog from CUE source. filename is used in error
// positions only.
func LoadString(filename, src string) (*Catalog, error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, buildError(err)
	}
	return fromValue(value)
}

func fromValue(v cue.Value) (*Catalog, error) {
	cards := v.LookupPath(cue.ParsePath("card"))
	if !cards.Exists() {
		return nil, &LoadError{Code: ErrCodeNoCards, Message: "no card struct found", Pos: v.Pos()}
	}
	iter, err := cards.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadField, Message: fmt.Sprintf("iterating cards: %v", err), Pos: cards.Pos()}
	}

	var defs []card.Definition
	for iter.Next() {
		id := iter.Selector().Unquoted()
		spec, err := decodeSpec(id, iter.Value())
		if err != nil {
			return nil, err
		}
		def, err := card.NewDefinition(spec)
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeInvalidCard,
				Card:    id,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
				Err:     err,
			}
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoCards, Message: "card struct is empty", Pos: cards.Pos()}
	}
	return New(defs...)
}

func decodeSpec(id string, v cue.Value) (card.Spec, error) {
	spec := card.Spec{ID: id}
	var err error

	if spec.Name, err = requiredString(id, v, "name"); err != nil {
		return spec, err
	}
	typeName, err := requiredString(id, v, "type")
	if err != nil {
		return spec, err
	}
	if spec.Type, err = card.ParseType(typeName); err != nil {
		return spec, fieldError(id, v, "type", err)
	}
	costVal := v.LookupPath(cue.ParsePath("cost"))
	if !costVal.Exists() {
		return spec, missingField(id, v, "cost")
	}
	cost, err := costVal.Int64()
	if err != nil {
		return spec, fieldError(id, costVal, "cost", err)
	}
	if cost < card.MinCost || cost > card.MaxCost {
		verr := &card.ValidationError{
			Code:    card.ErrCodeCostOutOfRange,
			Field:   "cost",
			Message: fmt.Sprintf("cost %d must be within [%d, %d]", cost, card.MinCost, card.MaxCost),
		}
		return spec, &LoadError{Code: ErrCodeInvalidCard, Card: id, Message: verr.Error(), Pos: costVal.Pos(), Err: verr}
	}
	spec.Cost = int(cost)

	target, err := requiredString(id, v, "target")
	if err != nil {
		return spec, err
	}
	if spec.TargetRule, err = card.ParseTargetRule(target); err != nil {
		return spec, fieldError(id, v, "target", err)
	}
	if spec.TextKey, err = requiredString(id, v, "text_key"); err != nil {
		return spec, err
	}
	if spec.Rarity, err = requiredString(id, v, "rarity"); err != nil {
		return spec, err
	}
	if spec.ClassTag, err = requiredString(id, v, "class_tag"); err != nil {
		return spec, err
	}

	if up := v.LookupPath(cue.ParsePath("upgraded_id")); up.Exists() {
		s, err := up.String()
		if err != nil {
			return spec, fieldError(id, up, "upgraded_id", err)
		}
		spec.UpgradedID = &s
	}

	if effects := v.LookupPath(cue.ParsePath("effects")); effects.Exists() {
		if spec.EffectCommands, err = decodeEffects(id, effects); err != nil {
			return spec, err
		}
	}
	return spec, nil
}

func decodeEffects(id string, v cue.Value) ([]card.EffectCommand, error) {
	list, err := v.List()
	if err != nil {
		return nil, fieldError(id, v, "effects", err)
	}
	var out []card.EffectCommand
	for i := 0; list.Next(); i++ {
		ev := list.Value()
		field := fmt.Sprintf("effects[%d]", i)
		kindVal := ev.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, missingField(id, ev, field+".kind")
		}
		kind, err := kindVal.String()
		if err != nil {
			return nil, fieldError(id, kindVal, field+".kind", err)
		}
		cmd := card.EffectCommand{Kind: kind}

		if params := ev.LookupPath(cue.ParsePath("params")); params.Exists() {
			fields, err := params.Fields()
			if err != nil {
				return nil, fieldError(id, params, field+".params", err)
			}
			cmd.Parameters = make(map[string]string)
			for fields.Next() {
				key := fields.Selector().Unquoted()
				s, err := paramString(fields.Value())
				if err != nil {
					return nil, fieldError(id, fields.Value(), field+".params."+key, err)
				}
				cmd.Parameters[key] = s
			}
		}
		out = append(out, cmd)
	}
	return out, nil
}

// paramString renders a scalar parameter. Floats are rejected so numeric
// parameters always round-trip exactly.
func paramString(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case cue.FloatKind:
		return "", errors.New("float parameters are not allowed, use an int or a string")
	default:
		return "", fmt.Errorf("parameter must be a string, int or bool, got %v", v.Kind())
	}
}

func requiredString(id string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", missingField(id, v, field)
	}
	s, err := fv.String()
	if err != nil {
		return "", fieldError(id, fv, field, err)
	}
	return s, nil
}

func missingField(id string, v cue.Value, field string) error {
	return &LoadError{Code: ErrCodeBadField, Card: id, Message: field + " is required", Pos: v.Pos()}
}

func fieldError(id string, v cue.Value, field string, err error) error {
	return &LoadError{Code: ErrCodeBadField, Card: id, Message: fmt.Sprintf("%s: %v", field, err), Pos: v.Pos(), Err: err}
}

// buildError keeps the position of the first CUE error.
func buildError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) > 0 {
		if pos := cueerrors.Positions(errs[0]); len(pos) > 0 {
			return &LoadError{Code: ErrCodeBuildFailed, Message: errs[0].Error(), Pos: pos[0]}
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
}
