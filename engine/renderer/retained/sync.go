package retained

import (
	"sort"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/gpu"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const instanceStride = uint64(metadata.InstanceRecordSize)

type change struct {
	index  uint32
	record metadata.InstanceRecord
}

type member struct {
	index  uint32
	object instanced
}

/**
 * @brief Brings every GPU buffer up to date with the live objects.
 *
 * Dirty objects are prepared, their records written at their arena index in
 * the instance buffer and then copied into the grouped buffer. The grouped
 * buffer is rebuilt from scratch only when membership or grouping changed.
 */
func (r *Renderer) Synchronize() error {
	r.stats = FrameStats{}
	r.hideUnusedDebugText()

	if gen := r.atlas.Generation(); gen != r.generation {
		r.generation = gen
		r.objects.Each(func(_ containers.Handle, d *Drawable) {
			(*d).markDirty(DirtyMaterial)
		})
	}
	// labels packed or moved since the last frame
	if rev := r.atlas.Revision(); rev != r.revision {
		since := r.revision
		r.revision = rev
		r.invalidateTextures(func(label string, unresolved bool) bool {
			return unresolved || r.atlas.ChangedSince(label, since)
		})
	}

	regroup := r.membershipChanged
	textChanged := r.textMembershipChanged
	var changes []change

	r.objects.Each(func(h containers.Handle, d *Drawable) {
		obj := *d
		if !obj.IsDirty() {
			return
		}
		before := obj.Dirty()
		inst, isInstanced := obj.(instanced)
		wasCulled := isInstanced && inst.Culled()

		updated := obj.Prepare(r.assets)
		grouping := (before &^ obj.Dirty()).Any(DirtyContent | DirtyVisibility)

		if !isInstanced {
			if updated || grouping {
				textChanged = true
			}
			return
		}
		if grouping || inst.Culled() != wasCulled {
			regroup = true
		}
		if updated {
			changes = append(changes, change{index: h.Index, record: inst.InstanceRecord()})
		}
	})

	resized, err := r.instances.Reserve(uint64(r.objects.Capacity()) * instanceStride)
	if err != nil {
		return err
	}
	if resized {
		if err := r.rewriteInstances(); err != nil {
			return err
		}
		regroup = true
	} else if err := r.writeChanges(changes); err != nil {
		return err
	}

	if regroup {
		err = r.regroup()
	} else {
		err = r.patchGroups(changes)
	}
	if err != nil {
		return err
	}
	r.membershipChanged = false

	if textChanged {
		if err := r.rebuildText(); err != nil {
			return err
		}
	}
	r.textMembershipChanged = false
	return nil
}

func (r *Renderer) write(buf *gpu.GrowableBuffer, offset uint64, data []byte) error {
	if _, err := buf.Write(offset, data); err != nil {
		return err
	}
	r.stats.Writes++
	r.stats.BytesWritten += uint64(len(data))
	return nil
}

// rewriteInstances uploads every live record after the instance buffer was
// replaced.
func (r *Renderer) rewriteInstances() error {
	n := r.objects.Capacity()
	if n == 0 {
		return nil
	}
	data := make([]byte, 0, uint64(n)*instanceStride)
	r.objects.Each(func(h containers.Handle, d *Drawable) {
		// free and text slots stay zeroed
		for uint64(len(data)) < uint64(h.Index)*instanceStride {
			data = append(data, make([]byte, instanceStride)...)
		}
		if inst, ok := (*d).(instanced); ok {
			data = inst.InstanceRecord().AppendBytes(data)
		} else {
			data = append(data, make([]byte, instanceStride)...)
		}
	})
	return r.write(r.instances, 0, data)
}

// writeChanges writes changed records, one write per run of adjacent indices.
func (r *Renderer) writeChanges(changes []change) error {
	for i := 0; i < len(changes); {
		first := changes[i].index
		data := changes[i].record.AppendBytes(nil)
		j := i + 1
		for ; j < len(changes) && changes[j].index == changes[j-1].index+1; j++ {
			data = changes[j].record.AppendBytes(data)
		}
		if err := r.write(r.instances, uint64(first)*instanceStride, data); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// appendCopy merges a copy into the previous region when both ranges are
// contiguous with it.
func appendCopy(regions []gpu.BufferCopy, src, dst uint64) []gpu.BufferCopy {
	if n := len(regions); n > 0 {
		last := &regions[n-1]
		if last.SrcOffset+last.Size == src && last.DstOffset+last.Size == dst {
			last.Size += instanceStride
			return regions
		}
	}
	return append(regions, gpu.BufferCopy{SrcOffset: src, DstOffset: dst, Size: instanceStride})
}

func (r *Renderer) copyToGroups(regions []gpu.BufferCopy) error {
	if len(regions) == 0 {
		return nil
	}
	if err := r.device.CopyBuffer(r.instances.Buffer(), r.scratch.Buffer(), regions); err != nil {
		return err
	}
	r.stats.Copies += len(regions)
	return nil
}

// regroup rebuilds the grouped buffer ordered by layer, geometry id and then
// arena index.
func (r *Renderer) regroup() error {
	var members []member
	r.objects.Each(func(h containers.Handle, d *Drawable) {
		inst, ok := (*d).(instanced)
		if !ok || !inst.Visible() {
			return
		}
		if inst.Geometry().Degenerate() {
			core.LogDebug("object %d has degenerate geometry, skipped", h.Index)
			return
		}
		if inst.Culled() {
			core.LogDebug("object %d has zero scale, skipped", h.Index)
			return
		}
		members = append(members, member{index: h.Index, object: inst})
	})
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i].object, members[j].object
		if a.Layer() != b.Layer() {
			return a.Layer() < b.Layer()
		}
		if a.GeometryID() != b.GeometryID() {
			return a.GeometryID() < b.GeometryID()
		}
		return members[i].index < members[j].index
	})

	r.groups = r.groups[:0]
	clear(r.slots)
	r.stats.Rebuilt = true
	if len(members) == 0 {
		return nil
	}
	if _, err := r.scratch.Reserve(uint64(len(members)) * instanceStride); err != nil {
		return err
	}

	var regions []gpu.BufferCopy
	for slot, m := range members {
		s := uint32(slot)
		r.slots[m.index] = s
		if n := len(r.groups); n > 0 && r.groups[n-1].layer == m.object.Layer() && r.groups[n-1].geometry.ID == m.object.GeometryID() {
			r.groups[n-1].count++
		} else {
			r.groups = append(r.groups, batch{layer: m.object.Layer(), geometry: m.object.Geometry(), first: s, count: 1})
		}
		regions = appendCopy(regions, uint64(m.index)*instanceStride, uint64(s)*instanceStride)
	}
	r.stats.Groups = len(r.groups)
	return r.copyToGroups(regions)
}

// patchGroups copies changed records into their existing grouped slots.
func (r *Renderer) patchGroups(changes []change) error {
	r.stats.Groups = len(r.groups)
	var regions []gpu.BufferCopy
	for _, c := range changes {
		slot, ok := r.slots[c.index]
		if !ok {
			continue
		}
		regions = appendCopy(regions, uint64(c.index)*instanceStride, uint64(slot)*instanceStride)
	}
	return r.copyToGroups(regions)
}

// rebuildText rewrites the glyph buffer with every visible text, batched by
// layer and font.
func (r *Renderer) rebuildText() error {
	var texts []*Text
	r.objects.Each(func(_ containers.Handle, d *Drawable) {
		if t, ok := (*d).(*Text); ok && t.Visible() && len(t.records) > 0 {
			texts = append(texts, t)
		}
	})
	// Each visits in index order, so a stable sort keeps it within a batch
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].layer != texts[j].layer {
			return texts[i].layer < texts[j].layer
		}
		return texts[i].laidOutFont < texts[j].laidOutFont
	})

	r.fonts = r.fonts[:0]
	var data []byte
	var count uint32
	for _, t := range texts {
		if n := len(r.fonts); n > 0 && r.fonts[n-1].layer == t.layer && r.fonts[n-1].font == t.laidOutFont {
			r.fonts[n-1].count += uint32(len(t.records))
		} else {
			r.fonts = append(r.fonts, fontBatch{layer: t.layer, font: t.laidOutFont, first: count, count: uint32(len(t.records))})
		}
		for _, rec := range t.records {
			data = rec.AppendBytes(data)
		}
		count += uint32(len(t.records))
	}
	if len(data) == 0 {
		return nil
	}
	return r.write(r.glyphs, 0, data)
}
