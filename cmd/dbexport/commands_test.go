package main

import "testing"

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"run", "build", "publish", "fetch"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, cmd, err)
		}
	}

	for _, flag := range []string{"env-file", "inventory", "purchases", "output-dir"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestCommandArgs(t *testing.T) {
	root := newRootCmd()

	tests := []struct {
		cmd     string
		args    []string
		wantErr bool
	}{
		{"publish", nil, true},
		{"publish", []string{"output/my_database.db.gz"}, false},
		{"publish", []string{"a", "b"}, false},
		{"publish", []string{"a", "b", "c"}, true},
		{"fetch", []string{"inventario.csv.gz"}, true},
		{"fetch", []string{"inventario.csv.gz", "tmp/inventario.csv.gz"}, false},
		{"build", []string{"extra"}, true},
	}

	for _, tt := range tests {
		cmd, _, err := root.Find([]string{tt.cmd})
		if err != nil {
			t.Fatal(err)
		}
		err = cmd.Args(cmd, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s %v: err = %v, wantErr %v", tt.cmd, tt.args, err, tt.wantErr)
		}
	}
}

func TestSourceKeys(t *testing.T) {
	got := sourceKeys()
	want := []string{"inventory", "purchases"}
	if len(got) != len(want) {
		t.Fatalf("sourceKeys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sourceKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
