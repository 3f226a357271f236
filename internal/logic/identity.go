package logic

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/models"
	"github.com/ArthurBr02/IA-WoT-Winning-Chance/internal/upstream"
)

// IdentityBatchSize is the most names one account/list call carries.
const IdentityBatchSize = upstream.MaxAccountListLimit

// IdentityResolver maps nicknames to account ids. It never fails: names it
// cannot resolve come back with a Reason.
type IdentityResolver struct {
	directory AccountDirectory
	cache     LookupCache
	logger    *zap.SugaredLogger
}

func NewIdentityResolver(directory AccountDirectory, cache LookupCache, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{directory: directory, cache: cache, logger: logger.Sugar()}
}

// Resolve looks names up with exact, comma-joined account/list queries.
func (r *IdentityResolver) Resolve(ctx context.Context, names []string, region string) (map[string]int64, map[string]Reason) {
	resolved := make(map[string]int64)
	missing := make(map[string]Reason)

	pending := make([]string, 0, len(names))
	for _, name := range dedupeNames(names) {
		if id, ok := r.cache.GetAccountID(ctx, region, name); ok {
			resolved[name] = id
			continue
		}
		pending = append(pending, name)
	}

	for start := 0; start < len(pending); start += IdentityBatchSize {
		end := min(start+IdentityBatchSize, len(pending))
		r.resolveBatch(ctx, pending[start:end], region, resolved, missing)
	}
	return resolved, missing
}

func (r *IdentityResolver) resolveBatch(ctx context.Context, batch []string, region string, resolved map[string]int64, missing map[string]Reason) {
	resp, err := r.directory.AccountList(ctx, region, strings.Join(batch, ","), "exact", len(batch))
	if err != nil {
		reason := ReasonProxyFailed
		if upstream.IsKind(err, upstream.KindStatus) {
			reason = ReasonErrorResponse
		}
		r.logger.Warnw("Account lookup failed", "region", region, "names", len(batch), "reason", reason, "error", err)
		markAll(missing, batch, reason)
		return
	}

	if resp.Status != "ok" {
		r.logger.Warnw("Account lookup returned error status", "region", region, "status", resp.Status, "error", resp.Error)
		markAll(missing, batch, ReasonErrorResponse)
		return
	}

	entries, err := resp.Entries()
	if err != nil {
		r.logger.Warnw("Account lookup returned malformed data", "region", region, "error", err)
		markAll(missing, batch, ReasonErrorResponse)
		return
	}

	exact := make(map[string]models.AccountEntry, len(entries))
	folded := make(map[string]models.AccountEntry, len(entries))
	for _, e := range entries {
		if e.Nickname == "" {
			continue
		}
		exact[e.Nickname] = e
		if _, seen := folded[strings.ToLower(e.Nickname)]; !seen {
			folded[strings.ToLower(e.Nickname)] = e
		}
	}

	for _, name := range batch {
		entry, ok := exact[name]
		if !ok {
			entry, ok = folded[strings.ToLower(name)]
		}
		if !ok {
			missing[name] = ReasonNotFound
			continue
		}

		id, reason := parseAccountID(entry.AccountID)
		if reason != "" {
			missing[name] = reason
			continue
		}
		resolved[name] = id
		r.cache.SetAccountID(ctx, region, name, id)
	}
}

// parseAccountID accepts a positive integer, as a JSON number or string.
func parseAccountID(raw json.RawMessage) (int64, Reason) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` || string(raw) == "0" {
		return 0, ReasonMissingAccountID
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, ReasonInvalidAccountID
		}
		text = strings.TrimSpace(s)
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id < 0 {
		return 0, ReasonInvalidAccountID
	}
	if id == 0 {
		return 0, ReasonMissingAccountID
	}
	return id, ""
}

func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range models.NormalizeNames(names) {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func markAll(missing map[string]Reason, names []string, reason Reason) {
	for _, n := range names {
		missing[n] = reason
	}
}
