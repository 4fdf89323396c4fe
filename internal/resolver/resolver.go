package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
	"github.com/forma22-agency/gh-dispatch-relay/internal/mapper"
)

type Config struct {
	Owner string
	// Name fixes the repository. Empty selects image-basename mode.
	Name string
}

// Resolver picks the repository an inbound alert is dispatched to.
type Resolver interface {
	Resolve(ctx context.Context, payload any) (domain.Repository, error)
}

type resolver struct {
	cfg    Config
	images mapper.ImageMapper
}

func New(cfg Config, images mapper.ImageMapper) Resolver {
	return &resolver{cfg: cfg, images: images}
}

func (r *resolver) Resolve(ctx context.Context, payload any) (domain.Repository, error) {
	if r.cfg.Owner == "" {
		return domain.Repository{}, fmt.Errorf("%w: owner not configured", domain.ErrRepositoryResolution)
	}
	if r.cfg.Name != "" {
		return domain.Repository{Owner: r.cfg.Owner, Name: r.cfg.Name}, nil
	}

	refs := r.images.ImageRefs(ctx, payload)
	if len(refs) == 0 {
		return domain.Repository{}, fmt.Errorf("%w: no image reference in payload", domain.ErrRepositoryResolution)
	}

	for _, ref := range refs {
		if name := Basename(ref); name != "" {
			if len(refs) > 1 {
				slog.DebugContext(ctx, "payload carries several images, using the first usable one",
					"image", ref, "images", len(refs))
			}
			return domain.Repository{Owner: r.cfg.Owner, Name: name}, nil
		}
	}
	return domain.Repository{}, fmt.Errorf("%w: empty image basename in %q", domain.ErrRepositoryResolution, refs[0])
}

// Basename returns the final path segment of an image reference with any tag
// or digest removed: "ghcr.io/org/app@sha256:abc" -> "app". Only separators
// after the last "/" count, so registry ports are left alone.
func Basename(ref string) string {
	ref = strings.TrimSpace(ref)
	last := ref[strings.LastIndex(ref, "/")+1:]
	if i := strings.IndexAny(last, ":@"); i >= 0 {
		last = last[:i]
	}
	return last
}
