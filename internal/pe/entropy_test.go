package pe

import (
	"strings"
	"testing"
)

func TestSectionEntropyNote(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "Zero filled",
			data: make([]byte, 0x200),
			want: "entropy=0.00",
		},
		{
			name: "Eight distinct values",
			data: func() []byte {
				b := make([]byte, 0x200)
				for i := range b {
					b[i] = byte(i % 8)
				}
				return b
			}(),
			want: "entropy=3.00",
		},
		{
			name: "Every byte value twice",
			data: func() []byte {
				b := make([]byte, 0x200)
				for i := range b {
					b[i] = byte(i)
				}
				return b
			}(),
			want: "entropy=8.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := dataSection()
			s.data = tt.data
			m, err := Build((&testImage{sections: []testSection{s}}).bytes())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			note := m.Roots[1].Note
			if !strings.HasSuffix(note, tt.want) {
				t.Errorf("section note = %q, want suffix %q", note, tt.want)
			}
		})
	}
}

func TestSectionDataClamped(t *testing.T) {
	img := image(make([]byte, 0x300))
	tests := []struct {
		name string
		s    Section
		want int
	}{
		{"Inside", Section{PointerToRawData: 0x200, SizeOfRawData: 0x100}, 0x100},
		{"Past end", Section{PointerToRawData: 0x200, SizeOfRawData: 0x400}, 0x100},
		{"Starts past end", Section{PointerToRawData: 0x400, SizeOfRawData: 0x100}, 0},
		{"Overflowing size", Section{PointerToRawData: 0x200, SizeOfRawData: 0xFFFFFFFF}, 0x100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sectionData(img, &tt.s)
			if got := len(data); got != tt.want {
				t.Errorf("len(sectionData()) = %d, want %d", got, tt.want)
			}
			if tt.want == 0 && CalculateEntropy(data) != 0 {
				t.Errorf("CalculateEntropy() of missing raw data = %v, want 0", CalculateEntropy(data))
			}
		})
	}
}
