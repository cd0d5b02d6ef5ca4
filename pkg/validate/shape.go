package validate

import "fmt"

// StringList asserts that a decoded JSON value (from a map[string]any) is
// either absent (nil) or a list of strings, as required for tags,
// relatedIds, and derivedFromIds. It never mutates the input; callers
// pass the result of a json.Unmarshal into `any`.
func StringList(field string, raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, FieldError{field, "must be a list of strings"}
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, FieldError{fmt.Sprintf("%s[%d]", field, i), "must be a string"}
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseDynamicsInput decodes the optional dynamics sub-object a caller may
// supply on a memorize/update call (spec §4.3's dynamics fields), rejecting
// any present field that isn't the expected numeric or string shape.
// Stability is read separately from the top-level metadata field, since it
// lives alongside dynamics in denormalized columns rather than the JSON
// sub-object.
func ParseDynamicsInput(raw any) (DynamicsInput, []FieldError) {
	var di DynamicsInput
	if raw == nil {
		return di, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return di, []FieldError{{"dynamics", "must be an object"}}
	}

	var errs []FieldError
	if v, present := obj["initialPriority"]; present {
		if f, ok := v.(float64); ok {
			di.InitialPriority = &f
		} else {
			errs = append(errs, FieldError{"dynamics.initialPriority", "must be a number"})
		}
	}
	if v, present := obj["currentPriority"]; present {
		if f, ok := v.(float64); ok {
			di.CurrentPriority = &f
		} else {
			errs = append(errs, FieldError{"dynamics.currentPriority", "must be a number"})
		}
	}
	if v, present := obj["accessCount"]; present {
		if n, ok := asInt64(v); ok {
			di.AccessCount = &n
		} else {
			errs = append(errs, FieldError{"dynamics.accessCount", "must be an integer"})
		}
	}
	if v, present := obj["maxAccessCount"]; present {
		if n, ok := asInt64(v); ok {
			di.MaxAccessCount = &n
		} else {
			errs = append(errs, FieldError{"dynamics.maxAccessCount", "must be an integer"})
		}
	}
	if v, present := obj["sleepCycles"]; present {
		if n, ok := asInt64(v); ok {
			di.SleepCycles = &n
		} else {
			errs = append(errs, FieldError{"dynamics.sleepCycles", "must be an integer"})
		}
	}
	if v, present := obj["createdAt"]; present {
		if s, ok := v.(string); ok {
			di.CreatedAt = s
		} else {
			errs = append(errs, FieldError{"dynamics.createdAt", "must be a string"})
		}
	}
	if v, present := obj["lastAccessedAt"]; present {
		if s, ok := v.(string); ok {
			di.LastAccessedAt = s
		} else {
			errs = append(errs, FieldError{"dynamics.lastAccessedAt", "must be a string"})
		}
	}
	return di, errs
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// RelationshipList asserts that a decoded JSON value is either absent or a
// list of relationship objects, each with a string targetId.
func RelationshipList(raw any) ([]RelationshipInput, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, true, FieldError{"relationships", "must be a list"}
	}
	out := make([]RelationshipInput, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, true, FieldError{fmt.Sprintf("relationships[%d]", i), "must be an object"}
		}
		targetID, _ := obj["targetId"].(string)
		relType, _ := obj["type"].(string)
		var weight *float64
		if w, ok := obj["weight"].(float64); ok {
			weight = &w
		}
		out = append(out, RelationshipInput{TargetID: targetID, Type: relType, Weight: weight})
	}
	return out, true, nil
}
