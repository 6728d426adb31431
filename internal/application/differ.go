package application

import "github.com/bnema/hubwatch/internal/domain"

// DiffNew returns the models from listing that are absent from known,
// preserving listing order. Duplicate ids within listing are reported once.
func DiffNew(known map[domain.ModelID]struct{}, listing []domain.Model) []domain.Model {
	if len(listing) == 0 {
		return nil
	}

	seen := make(map[domain.ModelID]struct{}, len(listing))
	var fresh []domain.Model
	for _, model := range listing {
		if _, ok := known[model.ID]; ok {
			continue
		}
		if _, ok := seen[model.ID]; ok {
			continue
		}
		seen[model.ID] = struct{}{}
		fresh = append(fresh, model)
	}

	return fresh
}

// mergeKnown folds the current listing into the previously known id list.
// Listing order wins for ids present in the listing; ids that dropped out
// of the listing are retained after it, in their previous order.
func mergeKnown(previous []domain.ModelID, listing []domain.Model) []domain.ModelID {
	merged := make([]domain.ModelID, 0, len(previous)+len(listing))
	present := make(map[domain.ModelID]struct{}, len(listing))
	for _, model := range listing {
		if _, ok := present[model.ID]; ok {
			continue
		}
		present[model.ID] = struct{}{}
		merged = append(merged, model.ID)
	}
	for _, id := range previous {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		merged = append(merged, id)
	}

	return merged
}
