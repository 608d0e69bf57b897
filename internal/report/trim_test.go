package report

import (
	"strings"
	"testing"
)

func TestTrim(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts TrimOptions
		want string
	}{
		{
			name: "disabled",
			text: sampleOutput,
			opts: TrimOptions{},
			want: sampleOutput,
		},
		{
			name: "header only",
			text: "Calculating dependencies... done!\n[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\nTotal: 1 package\n",
			opts: TrimOptions{Header: true},
			want: "[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\nTotal: 1 package\n",
		},
		{
			name: "footer only",
			text: "noise\n[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\n\nTotal: 1 package\n\n * news\n",
			opts: TrimOptions{Footer: true},
			want: "noise\n[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\n",
		},
		{
			name: "both",
			text: sampleOutput,
			opts: TrimOptions{Header: true, Footer: true},
			want: sampleOutput[strings.Index(sampleOutput, "[\x1b[32mebuild"):strings.Index(sampleOutput, "\n\nTotal")] + "\n",
		},
		{
			name: "binary packages count as header marker",
			text: "noise\n[\x1b[32mbinary\x1b[39;49;00m   R] a/b-1\n",
			opts: TrimOptions{Header: true},
			want: "[\x1b[32mbinary\x1b[39;49;00m   R] a/b-1\n",
		},
		{
			name: "colored footer",
			text: "[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\n\x1b[01mTotal\x1b[0m: 1\n",
			opts: TrimOptions{Footer: true},
			want: "[\x1b[32mebuild\x1b[39;49;00m  N] a/b-1\n",
		},
		{
			name: "nothing to merge keeps text",
			text: "\nThese are the packages that would be merged, in order:\n\nCalculating dependencies... done!\n",
			opts: TrimOptions{Header: true, Footer: true},
			want: "\nThese are the packages that would be merged, in order:\n\nCalculating dependencies... done!\n",
		},
		{
			name: "Total inside a line is not a footer",
			text: "[\x1b[32mebuild\x1b[39;49;00m  N] dev-util/Total-1\n",
			opts: TrimOptions{Footer: true},
			want: "[\x1b[32mebuild\x1b[39;49;00m  N] dev-util/Total-1\n",
		},
		{
			name: "footer at start empties text",
			text: "Total: 0 packages\n",
			opts: TrimOptions{Footer: true},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trim(tt.text, tt.opts); got != tt.want {
				t.Errorf("Trim() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestTrimRunsBeforeSubstitution(t *testing.T) {
	r := NewRenderer(WithTrim(TrimOptions{Header: true, Footer: true}))
	plain, err := r.Plain(FromText(sampleOutput))
	if err != nil {
		t.Fatalf("Plain() error = %v", err)
	}
	if strings.Contains(plain, "Calculating") || strings.Contains(plain, "Total") || strings.Contains(plain, "news") {
		t.Errorf("trimmed rendering kept noise:\n%s", plain)
	}
	if !strings.HasPrefix(plain, "[ebuild") {
		t.Errorf("trimmed rendering should start with the merge list:\n%s", plain)
	}
}
