package audit

import (
	"encoding/json"
	"reflect"
)

// snapshot flattens a record into its serialized field map. Records that
// cannot be marshalled produce a nil map, which downstream treats as "nothing
// to compare".
func snapshot(record interface{}) map[string]interface{} {
	if record == nil {
		return nil
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	return fields
}

// diff compares two snapshots field by field with structural equality and
// returns an {old, new} pair per changed path, skipping bookkeeping fields and
// the kind's exclusion list.
func diff(kind string, before, after map[string]interface{}) map[string]interface{} {
	excluded := map[string]struct{}{}
	for field := range alwaysExcluded {
		excluded[field] = struct{}{}
	}
	if meta, ok := registry[kind]; ok {
		for _, field := range meta.Exclude {
			excluded[field] = struct{}{}
		}
	}

	paths := map[string]struct{}{}
	for path := range before {
		paths[path] = struct{}{}
	}
	for path := range after {
		paths[path] = struct{}{}
	}

	changes := map[string]interface{}{}
	for path := range paths {
		if _, skip := excluded[path]; skip {
			continue
		}
		oldValue := before[path]
		newValue := after[path]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changes[path] = map[string]interface{}{"old": oldValue, "new": newValue}
	}

	return changes
}

// actorFrom resolves the acting user recorded on the snapshot: updated_by if
// present, else created_by. Zero means no attributable actor.
func actorFrom(fields map[string]interface{}) uint {
	for _, key := range []string{"updated_by", "created_by"} {
		if value, ok := fields[key]; ok {
			if id := asUint(value); id > 0 {
				return id
			}
		}
	}
	return 0
}

// entityIDFrom pulls the primary key out of a snapshot.
func entityIDFrom(fields map[string]interface{}) *uint {
	if value, ok := fields["id"]; ok {
		if id := asUint(value); id > 0 {
			return &id
		}
	}
	return nil
}

func tenantFrom(fields map[string]interface{}) string {
	if value, ok := fields["tenant_id"]; ok {
		if tenant, ok := value.(string); ok {
			return tenant
		}
	}
	return ""
}

func asUint(value interface{}) uint {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
