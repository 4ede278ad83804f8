package detect

import "scrollsafe/internal/page"

// activeVideo picks the video the user is most plausibly watching. A playing
// element wins outright; otherwise the element whose vertical center sits
// closest to the viewport center is chosen.
func activeVideo(snap *page.Snapshot) *page.VideoInfo {
	if snap == nil || len(snap.Videos) == 0 {
		return nil
	}

	for i := range snap.Videos {
		if snap.Videos[i].Playing {
			return &snap.Videos[i]
		}
	}

	center := snap.ViewportHeight / 2
	best := -1
	bestDistance := 0
	for i := range snap.Videos {
		distance := snap.Videos[i].Bounds.VerticalCenter() - center
		if distance < 0 {
			distance = -distance
		}
		if best == -1 || distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	if best == -1 {
		return nil
	}
	return &snap.Videos[best]
}
