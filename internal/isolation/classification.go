// Package isolation is the data-access enforcement core: it classifies
// entities and wraps the storage engine so every operation on an isolated
// entity is constrained to the request's tenant.
package isolation

import (
	"fmt"
	"sort"

	dErrors "wayfare/pkg/domain-errors"
)

// TenantField is the document field carrying the tenant identifier on
// DirectColumn entities. The isolation client is its only writer.
const TenantField = "tenant_id"

// maxOwnerDepth bounds ThroughOwner chains during validation. Deep chains
// are a modeling smell and an unbounded walk would mask a cycle.
const maxOwnerDepth = 4

type kind int

const (
	kindGlobal kind = iota
	kindDirectColumn
	kindThroughOwner
)

// Classification says how an entity relates to tenants.
type Classification struct {
	kind     kind
	relation string
}

// Global marks an entity as shared across tenants: never filtered, never
// stamped.
func Global() Classification { return Classification{kind: kindGlobal} }

// DirectColumn marks an entity that carries the tenant identifier itself.
func DirectColumn() Classification { return Classification{kind: kindDirectColumn} }

// ThroughOwner marks an entity whose tenant is derived through the named
// owning relation (the entity carries "<relation>_id"). The owner's own
// classification resolves the tenant, so the ownership field stays the
// single source of truth instead of a denormalized tenant column that could
// drift.
func ThroughOwner(relation string) Classification {
	return Classification{kind: kindThroughOwner, relation: relation}
}

// IsIsolated reports whether operations on the entity must be
// tenant-constrained.
func (c Classification) IsIsolated() bool { return c.kind != kindGlobal }

// defaultEntities is the closed classification table for the platform.
func defaultEntities() map[string]Classification {
	return map[string]Classification{
		"user":          DirectColumn(),
		"content_block": DirectColumn(),
		"trip":          ThroughOwner("user"),
		"activity":      ThroughOwner("trip"),
		"document":      ThroughOwner("trip"),

		"tenant":         Global(),
		"system_setting": Global(),
		"role_template":  Global(),
		// Audit rows carry tenant ids but are written only by the kernel
		// and read only via the admin surface.
		"audit_log": Global(),
	}
}

// Classifier is the static, total classification over the known entity set.
// It is read-only after construction; Validate must pass before serving.
type Classifier struct {
	entities map[string]Classification
	// paths caches the compiled tenant ownership path per isolated entity,
	// e.g. "tenant_id" for user, "user.tenant_id" for trip.
	paths map[string]string
}

// NewClassifier builds the platform classifier.
func NewClassifier() *Classifier {
	return &Classifier{entities: defaultEntities()}
}

// NewClassifierWithEntities builds a classifier over a custom table. Used by
// tests; production uses NewClassifier.
func NewClassifierWithEntities(entities map[string]Classification) *Classifier {
	return &Classifier{entities: entities}
}

// Validate checks the table at startup: every ThroughOwner relation must
// resolve to a classified, isolated owner and terminate in a DirectColumn
// entity within maxOwnerDepth hops. An invalid table is a configuration
// error that must stop the process before it serves a single request —
// an unclassified entity would otherwise become a silent unfiltered path.
func (c *Classifier) Validate() error {
	paths := make(map[string]string, len(c.entities))
	for entity, cls := range c.entities {
		if !cls.IsIsolated() {
			continue
		}
		path, err := c.compilePath(entity, 0)
		if err != nil {
			return err
		}
		paths[entity] = path
	}
	c.paths = paths
	return nil
}

func (c *Classifier) compilePath(entity string, depth int) (string, error) {
	if depth > maxOwnerDepth {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation,
			"entity %q: ownership chain exceeds %d hops (cycle?)", entity, maxOwnerDepth)
	}
	cls, ok := c.entities[entity]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation,
			"entity %q: ownership chain references unclassified entity", entity)
	}
	switch cls.kind {
	case kindDirectColumn:
		return TenantField, nil
	case kindThroughOwner:
		rest, err := c.compilePath(cls.relation, depth+1)
		if err != nil {
			return "", err
		}
		return cls.relation + "." + rest, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvariantViolation,
			"entity %q: ownership chain passes through a global entity", entity)
	}
}

// Classify returns the entity's classification. Unknown entities are a
// configuration error, never a default.
func (c *Classifier) Classify(entity string) (Classification, error) {
	cls, ok := c.entities[entity]
	if !ok {
		return Classification{}, dErrors.Newf(dErrors.CodeInvariantViolation, "unclassified entity %q", entity)
	}
	return cls, nil
}

// TenantPath returns the compiled ownership path for an isolated entity.
// Validate must have run.
func (c *Classifier) TenantPath(entity string) (string, error) {
	if c.paths == nil {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "classifier used before validation")
	}
	path, ok := c.paths[entity]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvariantViolation, "no ownership path for entity %q", entity)
	}
	return path, nil
}

// OwnerField returns the document field referencing the owner for a
// ThroughOwner entity, e.g. "user_id" on trip.
func (c Classification) OwnerField() string {
	return c.relation + "_id"
}

// OwnerEntity returns the owning entity name for a ThroughOwner entity.
func (c Classification) OwnerEntity() string { return c.relation }

func (c Classification) String() string {
	switch c.kind {
	case kindGlobal:
		return "global"
	case kindDirectColumn:
		return "isolated(direct)"
	default:
		return fmt.Sprintf("isolated(through %s)", c.relation)
	}
}

// Entities returns the classified entity names in sorted order.
// Used by startup logging.
func (c *Classifier) Entities() []string {
	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
