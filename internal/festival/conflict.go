package festival

// DetectConflicts computes time-window overlaps across the entire lineup.
// Two artists conflict when they play the same day on different stages and
// their windows overlap by more than zero minutes. Overlap is symmetric:
// the reported minutes are identical regardless of argument order, and each
// pair is reported once.
func DetectConflicts(lineup []LineupArtist) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(lineup); i++ {
		startI, endI, ok := timeWindow(lineup[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(lineup); j++ {
			if lineup[i].Day != lineup[j].Day {
				continue
			}
			if lineup[i].Stage == lineup[j].Stage {
				continue
			}
			startJ, endJ, ok := timeWindow(lineup[j])
			if !ok {
				continue
			}
			if overlap := overlapMinutes(startI, endI, startJ, endJ); overlap > 0 {
				conflicts = append(conflicts, Conflict{
					Day:            lineup[i].Day,
					ArtistA:        lineup[i].Name,
					ArtistB:        lineup[j].Name,
					OverlapMinutes: overlap,
				})
			}
		}
	}
	return conflicts
}

// overlapMinutes returns the length of the intersection of two windows, or
// zero when they do not intersect. min/max keeps the computation symmetric.
func overlapMinutes(startA, endA, startB, endB int) int {
	start := startA
	if startB > start {
		start = startB
	}
	end := endA
	if endB < end {
		end = endB
	}
	if end <= start {
		return 0
	}
	return end - start
}
