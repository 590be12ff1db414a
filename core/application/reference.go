package application

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	referencePrefix = "BB-"
	referenceLen    = 9
	base36Alphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var newReferenceNumber = GenerateReferenceNumber // mockable

// GenerateReferenceNumber returns "BB-" followed by 9 random uppercase base-36 characters.
// Codes are not checked against existing ones.
func GenerateReferenceNumber() string {
	var sb strings.Builder
	sb.Grow(len(referencePrefix) + referenceLen)
	sb.WriteString(referencePrefix)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < referenceLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(base36Alphabet[n.Int64()])
	}
	return sb.String()
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}
