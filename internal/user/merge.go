package user

import "strconv"

// RemoteSpaceSize is the number of users the remote directory holds. Local ids
// start right after it. This is an assumption about a system we do not own:
// if the directory ever grows past this size, new local ids silently collide
// with remote ones.
const RemoteSpaceSize = 10

// NextLocalID derives the id for the next locally created user from the
// current number of local records.
func NextLocalID(localCount int) string {
	return strconv.Itoa(localCount + RemoteSpaceSize + 1)
}

// Merge combines local and remote users into one collection. Local records come
// first, in the order given; remote records follow, minus any whose id is
// already held locally. Neither input is modified.
func Merge(local, remote []User) []User {
	localIDs := make(map[string]struct{}, len(local))
	for _, u := range local {
		localIDs[u.ID] = struct{}{}
	}

	merged := make([]User, 0, len(local)+len(remote))
	merged = append(merged, local...)
	for _, u := range remote {
		if _, shadowed := localIDs[u.ID]; shadowed {
			continue
		}
		merged = append(merged, u)
	}
	return merged
}
