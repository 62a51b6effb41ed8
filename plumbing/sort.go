package plumbing

import "sort"

type idSlice []Id

func (s idSlice) Len() int           { return len(s) }
func (s idSlice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s idSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func sortIds(ids []Id) {
	sort.Sort(idSlice(ids))
}
