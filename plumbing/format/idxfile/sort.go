package idxfile

import "sort"

type entrySlice []Entry

func (s entrySlice) Len() int           { return len(s) }
func (s entrySlice) Less(i, j int) bool { return s[i].Id.Less(s[j].Id) }
func (s entrySlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func sortEntries(e []Entry) {
	sort.Sort(entrySlice(e))
}
