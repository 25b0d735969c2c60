package weights_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/weights"
)

var f84 = fixed.Format{Bits: 8, Frac: 4}

var _ = Describe("ParseValues", func() {
	It("should parse comma-separated raw integers", func() {
		values, err := weights.ParseValues(strings.NewReader("1, -2, 3"), f84)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveLen(3))
		Expect(values[1].Raw()).To(Equal(int64(-2)))
	})

	It("should accept newline-separated values", func() {
		values, err := weights.ParseValues(strings.NewReader("7\n8\n9\n"), f84)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveLen(3))
	})

	It("should reject non-numeric fields", func() {
		_, err := weights.ParseValues(strings.NewReader("1, x, 3"), f84)
		Expect(err).To(HaveOccurred())
	})

	It("should reject values outside the format range", func() {
		_, err := weights.ParseValues(strings.NewReader("300"), f84)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseBias", func() {
	It("should check one value per output channel", func() {
		bias, err := weights.ParseBias(strings.NewReader("4, -4"), f84, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(bias).To(HaveLen(2))
	})

	It("should reject a count mismatch", func() {
		_, err := weights.ParseBias(strings.NewReader("4, -4, 0"), f84, 2)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseWindows", func() {
	It("should parse one window per line", func() {
		src := "1, 2, 3, 4\n5, 6, 7, 8\n"
		windows, err := weights.ParseWindows(strings.NewReader(src), f84, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(windows).To(HaveLen(2))
		Expect(windows[1].At(0, 1).Raw()).To(Equal(int64(6)))
	})

	It("should skip blank lines", func() {
		src := "1, 2, 3, 4\n\n5, 6, 7, 8\n"
		windows, err := weights.ParseWindows(strings.NewReader(src), f84, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(windows).To(HaveLen(2))
	})

	It("should reject rows of the wrong width", func() {
		_, err := weights.ParseWindows(strings.NewReader("1, 2, 3\n"), f84, 2)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Fixtures", func() {
	formats := weights.FixtureFormats{
		Data:   f84,
		Weight: f84,
		Out:    fixed.Format{Bits: 12, Frac: 4},
	}

	It("should assemble a triple from literals", func() {
		fx, err := weights.ParseFixture(
			"1, 2, 3, 4\n5, 6, 7, 8\n",
			"1, 0, 0, 1\n1, 0, 0, 1\n",
			"5\n13\n",
			formats, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(fx.Inputs).To(HaveLen(2))
		Expect(fx.Weights).To(HaveLen(2))
		Expect(fx.Expected).To(HaveLen(2))
	})

	It("should reject mismatched input and weight counts", func() {
		_, err := weights.ParseFixture(
			"1, 2, 3, 4\n",
			"1, 0, 0, 1\n1, 0, 0, 1\n",
			"5\n",
			formats, 2)
		Expect(err).To(HaveOccurred())
	})

	It("should load a triple from files", func() {
		dir := GinkgoT().TempDir()
		write := func(name, content string) string {
			path := filepath.Join(dir, name)
			Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
			return path
		}
		in := write("input.csv", "1, 2, 3, 4\n")
		wk := write("weights.csv", "1, 1, 1, 1\n")
		exp := write("expected.csv", "10\n")

		fx, err := weights.LoadFixture(in, wk, exp, formats, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(fx.Expected[0].Raw()).To(Equal(int64(10)))
	})
})
