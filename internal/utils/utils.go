package utils

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

var normalPadding = cli.Default.Padding

type stop struct {
	error
}

// Stop wraps err so that Retry gives up immediately
func Stop(err error) error {
	return stop{err}
}

// Retry calls f until it succeeds, backing off with jitter between attempts
func Retry(attempts int, sleep time.Duration, f func() error) error {
	for n := 1; ; n++ {
		err := f()
		if err == nil {
			return nil
		}

		var s stop
		if errors.As(err, &s) {
			// Return the original error for later checking
			return s.error
		}

		if n >= attempts {
			return fmt.Errorf("after %d attempts, %w", n, err)
		}

		if sleep > 0 {
			jitter := time.Duration(rand.Int63n(int64(sleep)))
			sleep = sleep + jitter/2
		}
		time.Sleep(sleep)
		sleep *= 2
	}
}

func RandomAgent() string {
	var userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/61.0.3163.100 Safari/537.36",
		"Mozilla/5.0 (Windows NT 6.1; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/61.0.3163.100 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/61.0.3163.100 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Safari/604.1.38",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:56.0) Gecko/20100101 Firefox/56.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_13) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Safari/604.1.38",
	}
	return userAgents[rand.Int()%len(userAgents)]
}

// Indent indents apex log line to supplied level
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// Verify checks data against a hex encoded sha1 sum
func Verify(sha1sum string, data []byte) bool {
	actual := fmt.Sprintf("%x", sha1.Sum(data))

	match := strings.EqualFold(sha1sum, actual)
	if !match {
		Indent(log.WithFields(log.Fields{
			"expected": sha1sum,
			"actual":   actual,
		}).Error, 2)("BAD CHECKSUM")
	}

	return match
}

// Unique returns a slice with only unique non-empty strings in input order
func Unique(s []string) []string {
	unique := make(map[string]bool, len(s))
	us := make([]string, 0, len(s))
	for _, elem := range s {
		if len(elem) != 0 {
			if !unique[elem] {
				us = append(us, elem)
				unique[elem] = true
			}
		}
	}

	return us
}
