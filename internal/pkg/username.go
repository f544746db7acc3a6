package pkg

import (
	cryptoRand "crypto/rand"
	"math/big"
	"strings"
)

const letters = "abcdefghijklmnopqrstuvwxyz"

func randInt(n int64) (int64, error) {
	x, err := cryptoRand.Int(cryptoRand.Reader, big.NewInt(n))
	if err != nil {
		return 0, err
	}
	return x.Int64(), nil
}

// GenerateUsername produces a random display-name candidate: an uppercase
// letter, two to five lowercase letters, an underscore, then a one to six
// digit number. Uniqueness is the caller's problem.
func GenerateUsername() (string, error) {
	var b strings.Builder

	first, err := randInt(int64(len(letters)))
	if err != nil {
		return "", err
	}
	b.WriteByte(letters[first] - 'a' + 'A')

	count, err := randInt(4)
	if err != nil {
		return "", err
	}
	for i := int64(0); i < count+2; i++ {
		idx, err := randInt(int64(len(letters)))
		if err != nil {
			return "", err
		}
		b.WriteByte(letters[idx])
	}

	b.WriteByte('_')

	digits, err := randInt(6)
	if err != nil {
		return "", err
	}
	// length digits+1 in 1..6, drawn uniformly from [10^d, 10^(d+1)-1]
	min := int64(1)
	for i := int64(0); i < digits; i++ {
		min *= 10
	}
	off, err := randInt(min * 9)
	if err != nil {
		return "", err
	}
	b.WriteString(big.NewInt(min + off).String())

	return b.String(), nil
}
