// Copyright 2025 Lincoln Institute of Land Policy
// SPDX-License-Identifier: Apache-2.0

package shacl

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/internetofwater/ldsync/internal/graph"
)

// A single check of a shape against the value nodes of a focus node
type constraint struct {
	// local name of the constraint component, for instance MinCountConstraintComponent
	component string
	check     func(v *validator, focus graph.Term, values []graph.Term) []finding
}

// A failed check; the engine turns it into a Result
type finding struct {
	// zero when the result has no value node
	value   graph.Term
	message string
	// overrides the path of the shape; used by sh:closed
	path string
}

func noop(*validator, graph.Term, []graph.Term) []finding { return nil }

// eachValue reports a finding for every value node that fails ok
func eachValue(values []graph.Term, ok func(graph.Term) bool, message func(graph.Term) string) []finding {
	var out []finding
	for _, value := range values {
		if !ok(value) {
			out = append(out, finding{value: value, message: message(value)})
		}
	}
	return out
}

func minCount(n int) *constraint {
	return &constraint{component: "MinCountConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		if len(values) >= n {
			return nil
		}
		return []finding{{message: fmt.Sprintf("Less than %d values on %s", n, focus.Compact())}}
	}}
}

func maxCount(n int) *constraint {
	return &constraint{component: "MaxCountConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		if len(values) <= n {
			return nil
		}
		return []finding{{message: fmt.Sprintf("More than %d values on %s", n, focus.Compact())}}
	}}
}

func minLength(n int) *constraint {
	return &constraint{component: "MinLengthConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return !t.IsBlank() && utf8.RuneCountInString(t.Value) >= n },
			func(t graph.Term) string { return fmt.Sprintf("String length not >= %d", n) })
	}}
}

func maxLength(n int) *constraint {
	return &constraint{component: "MaxLengthConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return !t.IsBlank() && utf8.RuneCountInString(t.Value) <= n },
			func(t graph.Term) string { return fmt.Sprintf("String length not <= %d", n) })
	}}
}

func datatype(dt graph.Term) *constraint {
	return &constraint{component: "DatatypeConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool {
				return t.IsLiteral() && t.EffectiveDatatype() == dt.Value && WellFormed(t)
			},
			func(t graph.Term) string { return fmt.Sprintf("Value is not Literal with datatype %s", dt.Compact()) })
	}}
}

func class(c graph.Term) *constraint {
	return &constraint{component: "ClassConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return !t.IsLiteral() && v.isInstance(t, c) },
			func(t graph.Term) string { return fmt.Sprintf("Value does not have class %s", c.Compact()) })
	}}
}

func nodeKind(kind graph.Term) (*constraint, error) {
	allowed := map[string][]graph.TermKind{
		"IRI":                {graph.IRIKind},
		"BlankNode":          {graph.BlankKind},
		"Literal":            {graph.LiteralKind},
		"BlankNodeOrIRI":     {graph.BlankKind, graph.IRIKind},
		"BlankNodeOrLiteral": {graph.BlankKind, graph.LiteralKind},
		"IRIOrLiteral":       {graph.IRIKind, graph.LiteralKind},
	}
	name, _ := strings.CutPrefix(kind.Value, graph.SHNamespace)
	kinds, ok := allowed[name]
	if !ok {
		return nil, fmt.Errorf("unknown sh:nodeKind %s", kind)
	}
	return &constraint{component: "NodeKindConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool {
				for _, k := range kinds {
					if t.Kind == k {
						return true
					}
				}
				return false
			},
			func(t graph.Term) string { return fmt.Sprintf("Value is not of Node Kind %s", kind.Compact()) })
	}}, nil
}

func pattern(re *regexp.Regexp) *constraint {
	return &constraint{component: "PatternConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return !t.IsBlank() && re.MatchString(t.Value) },
			func(t graph.Term) string { return fmt.Sprintf("Value does not match pattern %q", re.String()) })
	}}
}

func in(members []graph.Term) *constraint {
	set := newTermSet()
	set.add(members...)
	rendered := make([]string, len(members))
	for i, m := range members {
		rendered[i] = m.Compact()
	}
	list := "(" + strings.Join(rendered, " ") + ")"
	return &constraint{component: "InConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values, set.has,
			func(t graph.Term) string { return fmt.Sprintf("Value %s not in list %s", t.Compact(), list) })
	}}
}

func hasValue(expected graph.Term) *constraint {
	return &constraint{component: "HasValueConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		for _, value := range values {
			if value == expected {
				return nil
			}
		}
		return []finding{{message: fmt.Sprintf("Value %s is missing on %s", expected.Compact(), focus.Compact())}}
	}}
}

// languageMatches implements basic language range matching
func languageMatches(tag, languageRange string) bool {
	tag, languageRange = strings.ToLower(tag), strings.ToLower(languageRange)
	if languageRange == "*" {
		return tag != ""
	}
	return tag == languageRange || strings.HasPrefix(tag, languageRange+"-")
}

func languageIn(ranges []graph.Term) *constraint {
	rendered := make([]string, len(ranges))
	for i, r := range ranges {
		rendered[i] = r.Value
	}
	return &constraint{component: "LanguageInConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool {
				if !t.IsLiteral() {
					return false
				}
				for _, r := range ranges {
					if languageMatches(t.Lang, r.Value) {
						return true
					}
				}
				return false
			},
			func(t graph.Term) string {
				return fmt.Sprintf("Language of %s is not one of %s", t.Compact(), strings.Join(rendered, ", "))
			})
	}}
}

func uniqueLang() *constraint {
	return &constraint{component: "UniqueLangConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		counts := make(map[string]int)
		for _, value := range values {
			if value.IsLiteral() && value.Lang != "" {
				counts[value.Lang]++
			}
		}
		var duplicated []string
		for lang, n := range counts {
			if n > 1 {
				duplicated = append(duplicated, lang)
			}
		}
		sort.Strings(duplicated)
		out := make([]finding, 0, len(duplicated))
		for _, lang := range duplicated {
			out = append(out, finding{message: fmt.Sprintf("Language %q used more than once", lang)})
		}
		return out
	}}
}

func equals(predicate graph.Term) *constraint {
	return &constraint{component: "EqualsConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		own := newTermSet()
		own.add(values...)
		other := newTermSet()
		other.add(v.data.Objects(focus, predicate)...)

		message := fmt.Sprintf("Value sets of the path and %s are not equal", predicate.Compact())
		var out []finding
		for _, value := range own.items {
			if !other.has(value) {
				out = append(out, finding{value: value, message: message})
			}
		}
		for _, value := range other.items {
			if !own.has(value) {
				out = append(out, finding{value: value, message: message})
			}
		}
		return out
	}}
}

func disjoint(predicate graph.Term) *constraint {
	return &constraint{component: "DisjointConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		other := newTermSet()
		other.add(v.data.Objects(focus, predicate)...)
		return eachValue(values,
			func(t graph.Term) bool { return !other.has(t) },
			func(t graph.Term) string { return fmt.Sprintf("Value is also a value of %s", predicate.Compact()) })
	}}
}

func closed(allowed map[graph.Term]bool) *constraint {
	return &constraint{component: "ClosedConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		var out []finding
		for _, value := range values {
			for _, t := range v.data.Match(&value, nil, nil) {
				if !allowed[t.Predicate] {
					out = append(out, finding{
						value:   t.Object,
						path:    t.Predicate.Compact(),
						message: fmt.Sprintf("Node %s is closed. It cannot have value: %s", value.Compact(), t.Object.Compact()),
					})
				}
			}
		}
		return out
	}}
}

func nodeConstraint(shape *Shape) *constraint {
	return &constraint{component: "NodeConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return v.conforms(shape, t) },
			func(t graph.Term) string { return fmt.Sprintf("Value does not conform to Shape %s", shape.Node.Compact()) })
	}}
}

func notConstraint(shape *Shape) *constraint {
	return &constraint{component: "NotConstraintComponent", check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool { return !v.conforms(shape, t) },
			func(t graph.Term) string {
				return fmt.Sprintf("Value conforms to Shape %s which it must not", shape.Node.Compact())
			})
	}}
}

// logical covers sh:and, sh:or and sh:xone
func logical(kind string, shapes []*Shape) *constraint {
	names := make([]string, len(shapes))
	for i, s := range shapes {
		names[i] = s.Node.Compact()
	}
	list := "(" + strings.Join(names, " ") + ")"
	component := map[string]string{
		"and":  "AndConstraintComponent",
		"or":   "OrConstraintComponent",
		"xone": "XoneConstraintComponent",
	}[kind]

	return &constraint{component: component, check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool {
				matched := 0
				for _, s := range shapes {
					if v.conforms(s, t) {
						matched++
					}
				}
				switch kind {
				case "and":
					return matched == len(shapes)
				case "or":
					return matched > 0
				default:
					return matched == 1
				}
			},
			func(t graph.Term) string {
				switch kind {
				case "and":
					return fmt.Sprintf("Value does not conform to every shape in %s", list)
				case "or":
					return fmt.Sprintf("Value does not conform to any shape in %s", list)
				default:
					return fmt.Sprintf("Value does not conform to exactly one shape in %s", list)
				}
			})
	}}
}

func valueRange(name string, bound graph.Term) *constraint {
	component := strings.ToUpper(name[:1]) + name[1:] + "ConstraintComponent"
	accept := map[string]func(int) bool{
		"minInclusive": func(c int) bool { return c >= 0 },
		"maxInclusive": func(c int) bool { return c <= 0 },
		"minExclusive": func(c int) bool { return c > 0 },
		"maxExclusive": func(c int) bool { return c < 0 },
	}[name]
	symbol := map[string]string{
		"minInclusive": ">=", "maxInclusive": "<=", "minExclusive": ">", "maxExclusive": "<",
	}[name]

	return &constraint{component: component, check: func(v *validator, focus graph.Term, values []graph.Term) []finding {
		return eachValue(values,
			func(t graph.Term) bool {
				c, ok := compareLiterals(t, bound)
				return ok && accept(c)
			},
			func(t graph.Term) string { return fmt.Sprintf("Value is not %s %s", symbol, bound.Compact()) })
	}}
}

var numericTypes = map[string]bool{
	graph.XSDInteger: true, graph.XSDDecimal: true, graph.XSDDouble: true, graph.XSDFloat: true,
	graph.XSDNamespace + "int": true, graph.XSDNamespace + "long": true, graph.XSDNamespace + "short": true,
	graph.XSDNamespace + "byte": true, graph.XSDNamespace + "nonNegativeInteger": true,
	graph.XSDNamespace + "positiveInteger": true, graph.XSDNamespace + "negativeInteger": true,
	graph.XSDNamespace + "nonPositiveInteger": true, graph.XSDNamespace + "unsignedInt": true,
	graph.XSDNamespace + "unsignedLong": true, graph.XSDNamespace + "unsignedShort": true,
	graph.XSDNamespace + "unsignedByte": true,
}

// compareLiterals orders two literals; ok is false when they are not comparable
func compareLiterals(a, b graph.Term) (int, bool) {
	if !a.IsLiteral() || !b.IsLiteral() {
		return 0, false
	}
	da, db := a.EffectiveDatatype(), b.EffectiveDatatype()
	if numericTypes[da] && numericTypes[db] {
		fa, errA := strconv.ParseFloat(a.Value, 64)
		fb, errB := strconv.ParseFloat(b.Value, 64)
		if errA != nil || errB != nil || math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if da != db || !WellFormed(a) || !WellFormed(b) {
		return 0, false
	}
	switch da {
	case graph.XSDDateTime, graph.XSDDate:
		ta, _ := parseTemporal(a)
		tb, _ := parseTemporal(b)
		return ta.Compare(tb), true
	case graph.XSDString:
		return strings.Compare(a.Value, b.Value), true
	default:
		return 0, false
	}
}

var (
	integerLexical = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalLexical = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
)

var dateTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}
var dateLayouts = []string{"2006-01-02", "2006-01-02Z07:00"}

func parseTemporal(t graph.Term) (time.Time, error) {
	layouts := dateTimeLayouts
	if t.EffectiveDatatype() == graph.XSDDate {
		layouts = dateLayouts
	}
	var err error
	for _, layout := range layouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, t.Value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

// WellFormed reports whether the lexical form of a literal is valid for
// its datatype. Datatypes without a known lexical space are accepted
func WellFormed(t graph.Term) bool {
	if !t.IsLiteral() {
		return false
	}
	switch dt := t.EffectiveDatatype(); {
	case dt == graph.XSDInteger, numericTypes[dt] && dt != graph.XSDDecimal && dt != graph.XSDDouble && dt != graph.XSDFloat:
		return integerLexical.MatchString(t.Value)
	case dt == graph.XSDDecimal:
		return decimalLexical.MatchString(t.Value)
	case dt == graph.XSDDouble, dt == graph.XSDFloat:
		switch t.Value {
		case "INF", "-INF", "+INF", "NaN":
			return true
		}
		_, err := strconv.ParseFloat(t.Value, 64)
		return err == nil
	case dt == graph.XSDBoolean:
		switch t.Value {
		case "true", "false", "1", "0":
			return true
		}
		return false
	case dt == graph.XSDDate, dt == graph.XSDDateTime:
		_, err := parseTemporal(t)
		return err == nil
	default:
		return true
	}
}
