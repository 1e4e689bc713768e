package cgfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// ReadPIDs parses the whitespace/newline-separated decimal pid list found in
// a cgroup.procs (or tasks) file.
func ReadPIDs(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pids []int
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		for _, tok := range strings.Fields(sc.Text()) {
			pid, err := strconv.Atoi(tok)
			if err != nil {
				return nil, &ParseError{Path: path, Token: tok, Err: err}
			}
			pids = append(pids, pid)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pids, nil
}

// WritePID writes a single pid to a cgroup.procs file. The kernel requires
// exactly one pid per write(2) call; batching multiple pids into one write
// is rejected by the kernel and must never be attempted here.
func WritePID(path string, pid int) error {
	return writeOnce(path, strconv.Itoa(pid))
}
