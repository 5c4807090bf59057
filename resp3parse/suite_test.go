package resp3parse_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestResp3Parse(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "resp3parse suite")
}
