package sim

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"
)

var _ = Describe("IDGenerator", func() {
	AfterEach(func() {
		UseSequentialIDGenerator()
	})

	It("should count up by default", func() {
		a, err := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)
		Expect(err).NotTo(HaveOccurred())

		b, err := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(a + 1))
	})

	It("should generate xids in parallel mode", func() {
		UseParallelIDGenerator()

		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			id := GetIDGenerator().Generate()
			_, err := xid.FromString(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
	})

	It("should continue the sequence after switching back", func() {
		before, _ := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)

		UseParallelIDGenerator()
		GetIDGenerator().Generate()
		UseSequentialIDGenerator()

		after, err := strconv.ParseUint(GetIDGenerator().Generate(), 10, 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(BeNumerically(">", before))
	})
})
