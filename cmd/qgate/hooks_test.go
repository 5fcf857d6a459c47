package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initHookRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-b", "main")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init failed: %v\n%s", err, out)
	}
	return dir
}

func inDir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestHookScript(t *testing.T) {
	script := hookScript("pre-commit")
	if !strings.HasPrefix(script, "#!/bin/sh\n") {
		t.Error("hook script missing shebang")
	}
	if !strings.Contains(script, hookMarker) {
		t.Error("hook script missing ownership marker")
	}
	if !strings.Contains(script, "qgate run") {
		t.Error("hook script should invoke qgate run")
	}

	push := hookScript("pre-push")
	if !strings.Contains(push, "--range") {
		t.Error("pre-push hook should use a commit range")
	}
	for _, ref := range []string{"@{push}", "@{upstream}", "echo HEAD"} {
		if !strings.Contains(push, ref) {
			t.Errorf("pre-push hook should fall back through %s", ref)
		}
	}
	if strings.Contains(push, "@{push}..HEAD") {
		t.Error("pre-push hook must not hardcode a range that breaks without a push destination")
	}
}

func TestHooksInstallAndUninstall(t *testing.T) {
	dir := initHookRepo(t)
	inDir(t, dir)

	if err := runHooksInstall(hooksInstallCmd, nil); err != nil {
		t.Fatalf("install: %v", err)
	}

	hookPath := filepath.Join(dir, ".git", "hooks", "pre-commit")
	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("hook not written: %v", err)
	}
	if !strings.Contains(string(content), hookMarker) {
		t.Error("installed hook missing marker")
	}
	info, err := os.Stat(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0100 == 0 {
		t.Error("hook not executable")
	}

	if err := runHooksUninstall(hooksUninstallCmd, nil); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook still present after uninstall")
	}
}

func TestHooksInstallPreservesForeignHook(t *testing.T) {
	dir := initHookRepo(t)
	inDir(t, dir)

	hooksDir := filepath.Join(dir, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	foreign := "#!/bin/sh\necho custom hook\n"
	hookPath := filepath.Join(hooksDir, "pre-commit")
	if err := os.WriteFile(hookPath, []byte(foreign), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := runHooksInstall(hooksInstallCmd, nil); err != nil {
		t.Fatalf("install: %v", err)
	}
	content, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != foreign {
		t.Error("install overwrote a hook it does not manage")
	}

	if err := runHooksUninstall(hooksUninstallCmd, nil); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(hookPath); err != nil {
		t.Error("uninstall removed a hook it does not manage")
	}
}
