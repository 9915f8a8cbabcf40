package translator

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hackvm/pkg/codegen"
	"hackvm/pkg/vm"
)

var _ = Describe("Translate", func() {
	var (
		mockCtrl *gomock.Controller
		sink     *MockSink
		written  []string
	)

	recordLines := func() {
		sink.EXPECT().
			WriteLine(gomock.Any()).
			Do(func(line string) { written = append(written, line) }).
			Return(nil).
			AnyTimes()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		sink = NewMockSink(mockCtrl)
		written = nil
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should close the sink once after a successful run", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil).Times(1)

		err := Translate([]Unit{SourceUnit("Main", "push constant 1\n")}, Options{}, sink)

		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(Equal([]string{"@1", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1"}))
	})

	It("should close the sink and write nothing for a malformed unit", func() {
		sink.EXPECT().Close().Return(nil).Times(1)

		err := Translate([]Unit{SourceUnit("Main", "push constant 1\npush local\n")}, Options{}, sink)

		Expect(errors.Is(err, vm.ErrMalformedCommand)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("translate Main"))
		Expect(err.Error()).To(ContainSubstring("line 2"))
	})

	It("should stop at the first failing unit", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil).Times(1)

		units := []Unit{
			SourceUnit("A", "push constant 1\n"),
			SourceUnit("B", "push pointer 2\n"),
			SourceUnit("C", "push constant 3\n"),
		}
		err := Translate(units, Options{}, sink)

		Expect(errors.Is(err, vm.ErrInvalidPointerIndex)).To(BeTrue())
		Expect(written).To(ContainElement("@1"))
		Expect(written).NotTo(ContainElement("@3"))
	})

	It("should report generator errors", func() {
		for src, want := range map[string]error{
			"pop constant 0\n":  vm.ErrUnsupportedOperation,
			"push heap 0\n":     vm.ErrInvalidSegment,
			"label 1st\n":       vm.ErrInvalidLabelFormat,
			"goto $CMP_END.0\n": vm.ErrInvalidLabelFormat,
			"push temp 8\n":     vm.ErrIndexOutOfRange,
			"jump X\n":          vm.ErrUnknownCommand,
			"label SP\n":        vm.ErrInvalidLabelFormat,
			"call R13 0\n":      vm.ErrInvalidLabelFormat,
		} {
			s := NewMockSink(mockCtrl)
			s.EXPECT().Close().Return(nil)
			err := Translate([]Unit{SourceUnit("Main", src)}, Options{}, s)
			Expect(errors.Is(err, want)).To(BeTrue(), "%q: got %v", src, err)
		}
	})

	It("should reject unit names that cannot prefix a static symbol", func() {
		for _, name := range []string{"my-prog", "1Main"} {
			s := NewMockSink(mockCtrl)
			s.EXPECT().Close().Return(nil)
			opened := false
			u := Unit{
				Name: name,
				Open: func() (io.ReadCloser, error) {
					opened = true
					return io.NopCloser(strings.NewReader("push constant 1\npop static 3\n")), nil
				},
			}

			err := Translate([]Unit{u}, Options{}, s)

			Expect(errors.Is(err, vm.ErrInvalidLabelFormat)).To(BeTrue(), "%s: got %v", name, err)
			Expect(err.Error()).To(ContainSubstring("translate " + name))
			Expect(opened).To(BeFalse())
		}
	})

	It("should close the sink when a unit cannot be opened", func() {
		sink.EXPECT().Close().Return(nil).Times(1)

		broken := Unit{
			Name: "Gone",
			Open: func() (io.ReadCloser, error) { return nil, vm.ErrInput },
		}
		err := Translate([]Unit{broken}, Options{}, sink)

		Expect(errors.Is(err, vm.ErrInput)).To(BeTrue())
	})

	It("should return the write error and still close", func() {
		boom := errors.New("disk full")
		sink.EXPECT().WriteLine(gomock.Any()).Return(boom)
		sink.EXPECT().Close().Return(nil).Times(1)

		err := Translate([]Unit{SourceUnit("Main", "add\n")}, Options{}, sink)

		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("should surface a close error when nothing else failed", func() {
		recordLines()
		boom := errors.New("flush failed")
		sink.EXPECT().Close().Return(boom)

		err := Translate([]Unit{SourceUnit("Main", "add\n")}, Options{}, sink)

		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("should keep the first error over a close error", func() {
		sink.EXPECT().Close().Return(errors.New("flush failed"))

		err := Translate([]Unit{SourceUnit("Main", "mul\n")}, Options{}, sink)

		Expect(errors.Is(err, vm.ErrUnknownCommand)).To(BeTrue())
	})

	It("should emit the bootstrap once before all unit code", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		units := []Unit{
			SourceUnit("Main", "function Main.main 0\npush constant 1\nreturn\n"),
			SourceUnit("Sys", "function Sys.init 0\ncall Main.main 0\n"),
		}
		err := Translate(units, Options{Bootstrap: true}, sink)

		Expect(err).NotTo(HaveOccurred())
		Expect(written[:4]).To(Equal([]string{"@256", "D=A", "@SP", "M=D"}))
		Expect(count(written, "@256")).To(Equal(1))
		Expect(count(written, "@Sys.init")).To(Equal(1))
		Expect(indexOf(written, "@Sys.init")).To(BeNumerically("<", indexOf(written, "(Main.main)")))
	})

	It("should honour a custom entry", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		opts := Options{
			Bootstrap:       true,
			BootstrapConfig: codegen.BootstrapConfig{StackBase: 512, Entry: "Main.main"},
		}
		err := Translate([]Unit{SourceUnit("Main", "function Main.main 0\n")}, opts, sink)

		Expect(err).NotTo(HaveOccurred())
		Expect(written[0]).To(Equal("@512"))
		Expect(written).To(ContainElement("@Main.main"))
	})

	It("should not emit a bootstrap unless asked", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		err := Translate([]Unit{SourceUnit("Sys", "function Sys.init 0\n")}, Options{}, sink)

		Expect(err).NotTo(HaveOccurred())
		Expect(written).NotTo(ContainElement("@256"))
		Expect(written[0]).To(Equal("(Sys.init)"))
	})

	It("should keep the label counter running across units", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		units := []Unit{
			SourceUnit("A", "push constant 1\npush constant 1\neq\n"),
			SourceUnit("B", "push constant 1\npush constant 1\neq\n"),
		}
		Expect(Translate(units, Options{}, sink)).To(Succeed())

		Expect(written).To(ContainElement("($CMP_TRUE.0)"))
		Expect(written).To(ContainElement("($CMP_TRUE.1)"))
		Expect(count(written, "($CMP_TRUE.0)")).To(Equal(1))
	})

	It("should namespace statics by unit", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		units := []Unit{
			SourceUnit("A", "push static 3\n"),
			SourceUnit("B", "push static 3\n"),
		}
		Expect(Translate(units, Options{}, sink)).To(Succeed())

		Expect(written).To(ContainElement("@A.3"))
		Expect(written).To(ContainElement("@B.3"))
	})

	It("should scope labels to the enclosing function and reset per unit", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		units := []Unit{
			SourceUnit("A", "function A.f 0\nlabel LOOP\n"),
			SourceUnit("B", "label LOOP\n"),
		}
		Expect(Translate(units, Options{}, sink)).To(Succeed())

		Expect(written).To(ContainElement("(A.f$LOOP)"))
		Expect(written).To(ContainElement("(LOOP)"))
	})

	It("should annotate commands when asked", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		src := "// comment\npush   constant 7\nadd\n"
		Expect(Translate([]Unit{SourceUnit("Main", src)}, Options{Bootstrap: true, Annotate: true}, sink)).To(Succeed())

		Expect(written[0]).To(Equal("// bootstrap"))
		Expect(written).To(ContainElement("// push constant 7"))
		Expect(written).To(ContainElement("// add"))
		Expect(indexOf(written, "// push constant 7")).To(BeNumerically("<", indexOf(written, "@7")))
	})

	It("should emit only assembly lines by default", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		src := `function Main.f 1
push argument 0
pop pointer 1
push that 0
push constant 0
gt
if-goto POS
call Main.f 1
label POS
return
`
		Expect(Translate([]Unit{SourceUnit("Main", src)}, Options{Bootstrap: true}, sink)).To(Succeed())

		for _, l := range written {
			ok := strings.HasPrefix(l, "@") ||
				(strings.HasPrefix(l, "(") && strings.HasSuffix(l, ")")) ||
				strings.Contains(l, "=") ||
				strings.Contains(l, ";")
			Expect(ok).To(BeTrue(), "unexpected line %q", l)
		}
	})

	It("should log through the configured logger", func() {
		recordLines()
		sink.EXPECT().Close().Return(nil)

		var logBuf bytes.Buffer
		opts := Options{Bootstrap: true, Logger: newDebugLogger(&logBuf)}
		Expect(Translate([]Unit{SourceUnit("Main", "add\n")}, opts, sink)).To(Succeed())

		Expect(logBuf.String()).To(ContainSubstring("emitting bootstrap"))
		Expect(logBuf.String()).To(ContainSubstring("unit=Main"))
	})
})

var _ = Describe("Units", func() {
	It("should detect the entry unit by exact name", func() {
		units := []Unit{SourceUnit("Main", ""), SourceUnit("Sys", "")}
		Expect(HasEntryUnit(units, DefaultEntryUnit)).To(BeTrue())
		Expect(HasEntryUnit(units[:1], DefaultEntryUnit)).To(BeFalse())
		Expect(HasEntryUnit([]Unit{SourceUnit("SysUtil", "")}, "Sys")).To(BeFalse())
	})

	It("should name file units after the file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "Foo.vm")
		Expect(os.WriteFile(path, []byte("push static 0\n"), 0644)).To(Succeed())

		u := FileUnit(path)
		Expect(u.Name).To(Equal("Foo"))

		rc, err := u.Open()
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(rc.Close()).To(Succeed())
		Expect(string(data)).To(Equal("push static 0\n"))
	})

	It("should report a missing file as an input error", func() {
		u := FileUnit(filepath.Join(GinkgoT().TempDir(), "Missing.vm"))
		_, err := u.Open()
		Expect(errors.Is(err, vm.ErrInput)).To(BeTrue())
	})
})

var _ = Describe("Sinks", func() {
	It("should write lines to a file on close", func() {
		path := filepath.Join(GinkgoT().TempDir(), "Out.asm")
		s, err := NewFileSink(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(s.WriteLine("@SP")).To(Succeed())
		Expect(s.WriteLine("M=M+1")).To(Succeed())
		Expect(s.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("@SP\nM=M+1\n"))
	})

	It("should fail to create a sink in a missing directory", func() {
		_, err := NewFileSink(filepath.Join(GinkgoT().TempDir(), "nope", "Out.asm"))
		Expect(err).To(HaveOccurred())
	})

	It("should flush a writer sink on close", func() {
		var buf bytes.Buffer
		s := NewWriterSink(&buf)
		Expect(s.WriteLine("(X)")).To(Succeed())
		Expect(s.Close()).To(Succeed())
		Expect(buf.String()).To(Equal("(X)\n"))
	})
})

func newDebugLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func count(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func indexOf(lines []string, want string) int {
	for i, l := range lines {
		if l == want {
			return i
		}
	}
	return -1
}
