package hcl_adapter

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/simbatch/internal/ctxlog"
)

// attrWritten reports whether an optional attribute appears in the source.
// gohcl fills omitted optional expressions with an empty-range placeholder
// rather than nil.
func attrWritten(ctx context.Context, expr hcl.Expression, name string) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	written := rng.End.Byte > rng.Start.Byte
	if !written {
		ctxlog.FromContext(ctx).Debug("Optional attribute omitted.", "attribute", name, "range", rng.String())
	}
	return written
}
