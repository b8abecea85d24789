package field

// Resolve matches a typed label against the active entities. Among matching
// entities the one closest to the exit wins; equal distances go to the older
// entity. The winner is removed from the field.
func (f *Field) Resolve(label string) (Entity, bool) {
	idx := -1
	best := 0.0
	for i, e := range f.entities {
		if e.Label != label {
			continue
		}
		rem := f.Remaining(e)
		if idx < 0 || rem < best || (rem == best && e.ID < f.entities[idx].ID) {
			idx = i
			best = rem
		}
	}
	if idx < 0 {
		return Entity{}, false
	}
	hit := f.entities[idx]
	f.entities = append(f.entities[:idx], f.entities[idx+1:]...)
	return hit, true
}
