// Package prompt asks the operator what to export: the whole catalog or a
// set of collections.
package prompt

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/Sternrassler/storefront-export/pkg/storefront"
)

// Scope is the export scope chosen by the operator.
type Scope string

const (
	// ScopeAllProducts exports the paginated product catalog to one file.
	ScopeAllProducts Scope = "All Products"

	// ScopeCollections exports selected collections to one file each.
	ScopeCollections Scope = "Specific Collections"
)

// Scopes lists the choices in the order they are offered.
var Scopes = []Scope{ScopeAllProducts, ScopeCollections}

// ParseScope maps a scope label back to a Scope.
func ParseScope(s string) (Scope, error) {
	for _, scope := range Scopes {
		if string(scope) == s {
			return scope, nil
		}
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ErrNoSelection is returned by a Static prompter that has nothing to answer with.
var ErrNoSelection = errors.New("no selection configured")

// Prompter chooses the export scope and, in collections mode, the collections.
type Prompter interface {
	ChooseScope() (Scope, error)
	ChooseCollections(collections []storefront.Collection) ([]string, error)
}

// askFunc matches survey.AskOne.
type askFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// Survey prompts interactively on the terminal.
type Survey struct {
	ask  askFunc
	opts []survey.AskOpt
}

// NewSurvey returns a terminal prompter. opts are passed to every question.
func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{ask: survey.AskOne, opts: opts}
}

// ChooseScope asks for the export scope with a single-select list.
func (s *Survey) ChooseScope() (Scope, error) {
	options := make([]string, len(Scopes))
	for i, scope := range Scopes {
		options[i] = string(scope)
	}

	var answer string
	q := &survey.Select{
		Message: "Do you want to export all products or from specific collections?",
		Options: options,
		Default: options[0],
	}
	if err := s.ask(q, &answer, s.opts...); err != nil {
		return "", fmt.Errorf("choose scope: %w", err)
	}
	return ParseScope(answer)
}

// ChooseCollections asks for any number of collections and returns their
// handles in list order.
func (s *Survey) ChooseCollections(collections []storefront.Collection) ([]string, error) {
	if len(collections) == 0 {
		return nil, nil
	}

	labels := make([]string, len(collections))
	for i, c := range collections {
		labels[i] = c.Label()
	}

	var answer []string
	q := &survey.MultiSelect{
		Message: "Select the collections you want to export:",
		Options: labels,
	}
	if err := s.ask(q, &answer, s.opts...); err != nil {
		return nil, fmt.Errorf("choose collections: %w", err)
	}
	return handlesForLabels(collections, answer), nil
}

// handlesForLabels maps selected labels back to handles, keeping the order of
// collections. Duplicate labels select every matching collection.
func handlesForLabels(collections []storefront.Collection, selected []string) []string {
	picked := make(map[string]bool, len(selected))
	for _, label := range selected {
		picked[label] = true
	}

	handles := make([]string, 0, len(selected))
	for _, c := range collections {
		if picked[c.Label()] {
			handles = append(handles, c.Handle)
		}
	}
	return handles
}

// Static answers from preset values, for non-interactive runs.
type Static struct {
	Scope       Scope
	Collections []string
}

// ChooseScope returns the preset scope.
func (s Static) ChooseScope() (Scope, error) {
	if s.Scope == "" {
		return "", ErrNoSelection
	}
	return s.Scope, nil
}

// ChooseCollections returns the preset handles that exist in collections, in
// the order given. An empty preset selects every collection.
func (s Static) ChooseCollections(collections []storefront.Collection) ([]string, error) {
	if len(s.Collections) == 0 {
		handles := make([]string, len(collections))
		for i, c := range collections {
			handles[i] = c.Handle
		}
		return handles, nil
	}

	known := make(map[string]bool, len(collections))
	for _, c := range collections {
		known[c.Handle] = true
	}

	var handles []string
	var missing []string
	for _, h := range s.Collections {
		if known[h] {
			handles = append(handles, h)
		} else {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return handles, &UnknownCollectionsError{Handles: missing}
	}
	return handles, nil
}

// UnknownCollectionsError reports preset handles that the storefront does not list.
type UnknownCollectionsError struct {
	Handles []string
}

func (e *UnknownCollectionsError) Error() string {
	return fmt.Sprintf("unknown collections: %v", e.Handles)
}
