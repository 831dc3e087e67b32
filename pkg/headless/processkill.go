package headless

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// killProcessTree kills a process and all its children.
// On Windows, proc.Kill() only terminates the parent process: Chrome's child
// processes (GPU helper, renderer, crashpad) survive and block indefinitely.
// On Linux/macOS, children of a killed parent get reparented to PID 1.
func killProcessTree(proc *os.Process) {
	if proc == nil {
		return
	}
	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(proc.Pid)).Run()
		return
	}
	// chromedp launches Chrome with Setpgid, so the group ID is the PID.
	if err := exec.Command("kill", "-9", "--", "-"+strconv.Itoa(proc.Pid)).Run(); err != nil {
		_ = proc.Kill()
	}
}
