package diff

import "sort"

// Change categories, in the fixed priority order Diff sorts by.
const (
	CategoryEntity             = "entity"
	CategoryLocation           = "location"
	CategoryExit               = "exit"
	CategorySection            = "section"
	CategoryChoice             = "choice"
	CategoryPropertyDependency = "property_dependency"
	CategoryReachability       = "reachability"
)

var categoryPriority = map[string]int{
	CategoryEntity:             0,
	CategoryLocation:           1,
	CategoryExit:               2,
	CategorySection:            3,
	CategoryChoice:             4,
	CategoryPropertyDependency: 5,
	CategoryReachability:       6,
}

// Change is a single detected difference between two snapshots.
type Change struct {
	Category string
	Kind     string
	ID       string
}

// Diff compares before against after and returns every detected Change in
// fixed category-priority, then lexicographic-id, order. Both snapshots
// must share the same Version, since a schema change invalidates direct
// field comparison.
func Diff(before, after *Snapshot) ([]Change, error) {
	if before.Version != after.Version {
		return nil, ErrVersionMismatch{Have: after.Version, Want: before.Version}
	}

	var changes []Change
	changes = append(changes, diffEntities(before, after)...)
	changes = append(changes, diffLocations(before, after)...)
	changes = append(changes, diffExits(before, after)...)
	changes = append(changes, diffSections(before, after)...)
	changes = append(changes, diffChoices(before, after)...)
	changes = append(changes, diffPropertyDependencies(before, after)...)
	changes = append(changes, diffReachability(before, after)...)

	sort.SliceStable(changes, func(i, j int) bool {
		pi, pj := categoryPriority[changes[i].Category], categoryPriority[changes[j].Category]
		if pi != pj {
			return pi < pj
		}
		return changes[i].ID < changes[j].ID
	})
	return changes, nil
}

func diffEntities(before, after *Snapshot) []Change {
	var changes []Change
	for id := range before.Entities {
		if _, ok := after.Entities[id]; !ok {
			changes = append(changes, Change{CategoryEntity, "removed", id})
		}
	}
	for id, a := range after.Entities {
		b, ok := before.Entities[id]
		if !ok {
			changes = append(changes, Change{CategoryEntity, "added", id})
			continue
		}
		if b.Type != a.Type {
			changes = append(changes, Change{CategoryEntity, "type_changed", id})
		}
	}
	return changes
}

func diffLocations(before, after *Snapshot) []Change {
	var changes []Change
	for id := range before.Locations {
		if _, ok := after.Locations[id]; !ok {
			changes = append(changes, Change{CategoryLocation, "removed", id})
		}
	}
	for id, a := range after.Locations {
		b, ok := before.Locations[id]
		if !ok {
			changes = append(changes, Change{CategoryLocation, "added", id})
			continue
		}
		if b.DisplayName != a.DisplayName {
			changes = append(changes, Change{CategoryLocation, "display_name_changed", id})
		}
	}
	return changes
}

func diffExits(before, after *Snapshot) []Change {
	var changes []Change
	beforeExits := flattenExits(before)
	afterExits := flattenExits(after)

	for exitID := range beforeExits {
		if _, ok := afterExits[exitID]; !ok {
			changes = append(changes, Change{CategoryExit, "removed", exitID})
		}
	}
	for exitID, a := range afterExits {
		b, ok := beforeExits[exitID]
		if !ok {
			changes = append(changes, Change{CategoryExit, "added", exitID})
			continue
		}
		if b.Destination != a.Destination {
			changes = append(changes, Change{CategoryExit, "destination_changed", exitID})
		}
		if b.HasCondition != a.HasCondition || (b.HasCondition && a.HasCondition && b.ConditionFingerprint != a.ConditionFingerprint) {
			changes = append(changes, Change{CategoryExit, "condition_changed", exitID})
		}
	}
	return changes
}

func flattenExits(snap *Snapshot) map[string]ExitSnapshot {
	out := make(map[string]ExitSnapshot)
	for locID, loc := range snap.Locations {
		for _, exit := range loc.Exits {
			out[locID+"/"+exit.Direction] = exit
		}
	}
	return out
}

func diffSections(before, after *Snapshot) []Change {
	var changes []Change
	for id := range before.Sections {
		if _, ok := after.Sections[id]; !ok {
			changes = append(changes, Change{CategorySection, "removed", id})
		}
	}
	for id := range after.Sections {
		if _, ok := before.Sections[id]; !ok {
			changes = append(changes, Change{CategorySection, "added", id})
		}
	}
	return changes
}

func diffChoices(before, after *Snapshot) []Change {
	var changes []Change
	beforeChoices := flattenChoices(before)
	afterChoices := flattenChoices(after)

	for id := range beforeChoices {
		if _, ok := afterChoices[id]; !ok {
			changes = append(changes, Change{CategoryChoice, "removed", id})
		}
	}
	for id, a := range afterChoices {
		b, ok := beforeChoices[id]
		if !ok {
			changes = append(changes, Change{CategoryChoice, "added", id})
			continue
		}
		if b.Label != a.Label {
			changes = append(changes, Change{CategoryChoice, "label_changed", id})
		}
		if b.Sticky != a.Sticky {
			changes = append(changes, Change{CategoryChoice, "stickiness_changed", id})
		}
	}
	return changes
}

func flattenChoices(snap *Snapshot) map[string]ChoiceSnapshot {
	out := make(map[string]ChoiceSnapshot)
	for _, sec := range snap.Sections {
		for _, ch := range sec.Choices {
			out[ch.ID] = ch
		}
	}
	return out
}

func diffPropertyDependencies(before, after *Snapshot) []Change {
	var changes []Change
	for key, b := range before.PropertyDependencies {
		if _, ok := after.PropertyDependencies[key]; !ok {
			if b.WriteCount > 0 {
				changes = append(changes, Change{CategoryPropertyDependency, "writer_removed", key})
			}
			if b.ReadCount > 0 {
				changes = append(changes, Change{CategoryPropertyDependency, "reader_removed", key})
			}
		}
	}
	for key, a := range after.PropertyDependencies {
		b, ok := before.PropertyDependencies[key]
		if !ok {
			if a.WriteCount > 0 {
				changes = append(changes, Change{CategoryPropertyDependency, "writer_added", key})
			}
			if a.ReadCount > 0 {
				changes = append(changes, Change{CategoryPropertyDependency, "reader_added", key})
			}
			continue
		}
		if b.WriteCount == 0 && a.WriteCount > 0 {
			changes = append(changes, Change{CategoryPropertyDependency, "writer_added", key})
		}
		if b.WriteCount > 0 && a.WriteCount == 0 {
			changes = append(changes, Change{CategoryPropertyDependency, "writer_removed", key})
		}
		if b.ReadCount == 0 && a.ReadCount > 0 {
			changes = append(changes, Change{CategoryPropertyDependency, "reader_added", key})
		}
		if b.ReadCount > 0 && a.ReadCount == 0 {
			changes = append(changes, Change{CategoryPropertyDependency, "reader_removed", key})
		}
		if b.OrphanStatus != a.OrphanStatus {
			changes = append(changes, Change{CategoryPropertyDependency, "orphan_status_changed", key})
		}
	}
	return changes
}

func diffReachability(before, after *Snapshot) []Change {
	var changes []Change
	for id := range before.Reachable {
		if !after.Reachable[id] {
			changes = append(changes, Change{CategoryReachability, "became_unreachable", id})
		}
	}
	for id := range after.Reachable {
		if !before.Reachable[id] {
			changes = append(changes, Change{CategoryReachability, "became_reachable", id})
		}
	}
	for id := range before.ImpossibleChoices {
		if !after.ImpossibleChoices[id] {
			changes = append(changes, Change{CategoryReachability, "choice_became_possible", id})
		}
	}
	for id := range after.ImpossibleChoices {
		if !before.ImpossibleChoices[id] {
			changes = append(changes, Change{CategoryReachability, "choice_became_impossible", id})
		}
	}
	return changes
}
