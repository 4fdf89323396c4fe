package mapper

import "context"

// ImageMapper locates container image references inside a webhook payload.
type ImageMapper interface {
	// ImageRefs returns every image reference found, in lookup order,
	// without duplicates. An empty result means none was found.
	ImageRefs(ctx context.Context, body any) []string
}

// StackRoxImageMapper understands StackRox / Red Hat ACS alert payloads.
//
// Lookup order at each level of "alert" nesting, outermost first:
//
//	deployment.containers[].image.name.fullName
//	image.name.fullName
//
// then a top-level "image" string. name.remote stands in for an empty fullName.
type StackRoxImageMapper struct{}

func NewStackRoxImageMapper() *StackRoxImageMapper {
	return &StackRoxImageMapper{}
}

func (m *StackRoxImageMapper) ImageRefs(ctx context.Context, body any) []string {
	root, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	var refs []string
	seen := make(map[string]struct{})
	add := func(ref string) {
		if ref == "" {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	for level := root; level != nil; level = asMap(level["alert"]) {
		if deployment := asMap(level["deployment"]); deployment != nil {
			containers, _ := deployment["containers"].([]any)
			for _, c := range containers {
				if container := asMap(c); container != nil {
					add(imageName(container["image"]))
				}
			}
		}
		if img := asMap(level["image"]); img != nil {
			add(imageName(img))
		}
	}

	if s, ok := root["image"].(string); ok {
		add(s)
	}

	return refs
}

// imageName reads a StackRox image object, or a bare reference string.
func imageName(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	name := asMap(asMap(v)["name"])
	if name == nil {
		return ""
	}
	if full, _ := name["fullName"].(string); full != "" {
		return full
	}
	remote, _ := name["remote"].(string)
	return remote
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
