package form

import (
	"fmt"

	"github.com/goliatone/go-crudform/pkg/schema"
)

// ResolveRelationship returns the parent attribute holding the inline's
// children. An explicit RelationshipName wins without consulting md.
func ResolveRelationship(md schema.Metadata, parentModel string, inline *Inline) (string, error) {
	if inline == nil {
		return "", fmt.Errorf("form: inline is nil")
	}
	if inline.relationship != "" {
		return inline.relationship, nil
	}
	if md == nil {
		return "", fmt.Errorf("form: schema metadata is required to resolve %s inline", inline.name)
	}

	rels, err := md.Relationships(parentModel)
	if err != nil {
		return "", err
	}
	childModel := inline.child.model
	var candidates []schema.Relationship
	for _, rel := range rels {
		if rel.Target == childModel {
			candidates = append(candidates, rel)
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: %s has no relationship to %s", ErrRelationshipNotFound, parentModel, childModel)
	case 1:
		rel := candidates[0]
		if !rel.Collection() {
			return "", fmt.Errorf("%w: %s.%s is %s, inlines need hasMany", ErrUnsupportedRelationship, parentModel, rel.Name, rel.Kind)
		}
		return rel.Name, nil
	default:
		return "", fmt.Errorf("%w: relationship between the models %s and %s is ambiguous, set an explicit relationship name on the %s inline",
			ErrAmbiguousRelationship, parentModel, childModel, inline.name)
	}
}
