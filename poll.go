package cgroup

import "time"

// MaxRetry bounds the number of 1ms polls create() performs waiting for the
// kernel to finish populating a newly created group directory's interface
// files, per spec §4.4/§9 ("cooperative wait, not a busy loop").
const MaxRetry = 100

const retryInterval = time.Millisecond

// pollUntil calls predicate up to maxRetry times, sleeping interval between
// attempts, until it returns true or an error. It returns the last
// (ok, err) pair observed; exhausting maxRetry without success returns
// (false, nil), leaving escalation to the caller.
func pollUntil(maxRetry int, interval time.Duration, predicate func() (bool, error)) (bool, error) {
	for i := 0; i < maxRetry; i++ {
		ok, err := predicate()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		time.Sleep(interval)
	}
	return false, nil
}
