package ramr

import "context"

// DurableMirror is the optional T3 sink (spec §4.3: "reached through
// DocumentStore... optional — RAMR functions with only T1+T2 if T3 is
// not wired"). It is a narrow interface rather than the full
// capability.DocumentStore surface because T3's only job is holding a
// long-horizon copy of select cache entries, not owning Projects,
// Sessions, Messages, or Artifacts.
type DurableMirror interface {
	MirrorPut(ctx context.Context, key string, value []byte) error
	MirrorGet(ctx context.Context, key string) ([]byte, bool, error)
}

// SyncT3 is the manual sync RAMR exposes for T3 (spec's Open Question
// resolution in DESIGN.md/SPEC_FULL.md §E.2: no automatic promotion path
// runs on the hot get/put path; a host that wants T3 durability calls
// this explicitly, e.g. on a schedule or at process shutdown).
func (r *RAMR) SyncT3(ctx context.Context, keys []string) error {
	if r.t3 == nil {
		return nil
	}
	now := r.now()
	for _, key := range keys {
		row, found, err := r.t2.get(key, now)
		if err != nil || !found {
			continue
		}
		if err := r.t3.MirrorPut(ctx, key, row.value); err != nil {
			return err
		}
	}
	return nil
}
