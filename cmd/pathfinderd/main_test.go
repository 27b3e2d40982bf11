package main

import (
	"testing"

	"go.viam.com/test"
)

func TestParseWalkableIDs(t *testing.T) {
	ids, err := parseWalkableIDs("101, 149,161")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldResemble, []int{101, 149, 161})
}

func TestParseWalkableIDsRejectsEmpty(t *testing.T) {
	_, err := parseWalkableIDs("")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseWalkableIDsRejectsOutOfRange(t *testing.T) {
	_, err := parseWalkableIDs("300")
	test.That(t, err, test.ShouldNotBeNil)
}
