package commitgraph

import (
	"bufio"
	"io"
	"path"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/plumbing"
)

// OpenChainFile reads a commit-graph-chain file: a newline-separated list
// of graph file ids, oldest layer first.
func OpenChainFile(r io.Reader) ([]plumbing.Id, error) {
	if r == nil {
		return nil, io.ErrUnexpectedEOF
	}
	bufRd := bufio.NewReader(r)
	chain := make([]plumbing.Id, 0, 8)
	for {
		line, err := bufRd.ReadSlice('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		id, ok := plumbing.FromHex(string(line[:len(line)-1]))
		if !ok {
			return nil, ErrMalformedCommitGraph
		}
		chain = append(chain, id)
	}
	return chain, nil
}

// OpenChainOrFileIndex opens whichever commit-graph representation a .git
// directory has: a single file at objects/info/commit-graph, or a layered
// chain under objects/info/commit-graphs/.
func OpenChainOrFileIndex(fs billy.Filesystem) (Index, error) {
	file, err := fs.Open(path.Join("objects", "info", "commit-graph"))
	if err != nil {
		return OpenChainIndex(fs)
	}
	index, err := OpenFileIndex(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return index, nil
}

// OpenChainIndex opens a layered commit-graph-chain, coalescing each layer
// into a single Index whose lookups start at the newest layer and fall
// through to older ones via the parent chaining OpenFileIndexWithParent
// already implements.
func OpenChainIndex(fs billy.Filesystem) (Index, error) {
	chainFile, err := fs.Open(path.Join("objects", "info", "commit-graphs", "commit-graph-chain"))
	if err != nil {
		return nil, err
	}
	chain, err := OpenChainFile(chainFile)
	_ = chainFile.Close()
	if err != nil {
		return nil, err
	}

	var index Index
	for _, id := range chain {
		file, err := fs.Open(path.Join("objects", "info", "commit-graphs", "graph-"+id.String()+".graph"))
		if err != nil {
			if index != nil {
				_ = index.Close()
			}
			return nil, err
		}
		index, err = OpenFileIndexWithParent(file, index)
		if err != nil {
			if index != nil {
				_ = index.Close()
			}
			return nil, err
		}
	}
	return index, nil
}
