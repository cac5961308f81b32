package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSQLiteConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	yaml := "storage:\n" +
		"  driver: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "payments.db") + "\n" +
		"redis:\n" +
		"  enabled: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	return dir
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())

	return strings.TrimSpace(out.String())
}

func TestExec_PaymentFlow(t *testing.T) {
	dir := writeSQLiteConfig(t)
	t.Cleanup(func() { configDir = "" })

	runCLI(t, "--config", dir, "migrate")

	assert.Equal(t, "Ошибка: Пользователь не найден.",
		runCLI(t, "--config", dir, "exec", "--user", "77", "list_payments"))

	assert.Contains(t, runCLI(t, "--config", dir, "exec", "--user", "77", "--name", "ann", "/start"), "Привет!")

	assert.Equal(t, `Платеж "Rent" добавлен.`,
		runCLI(t, "--config", dir, "exec", "--user", "77", "add_payment", "Rent", "500.00", "2024-03-01", "monthly", "month", "Rent"))

	assert.Equal(t, "Ошибка: Неверный формат данных.",
		runCLI(t, "--config", dir, "exec", "--user", "77", "add_payment", "Rent", "-5", "2024-03-01", "monthly", "month", "Rent"))

	list := runCLI(t, "--config", dir, "exec", "--user", "77", "list_payments")
	assert.Contains(t, list, "Rent: 500.00 руб. Дата: 2024-03-01")
	assert.Equal(t, 2, len(strings.Split(list, "\n")))
}

func TestExec_RequiresUser(t *testing.T) {
	dir := writeSQLiteConfig(t)
	t.Cleanup(func() { configDir = "" })

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", dir, "exec", "list_payments"})
	assert.Error(t, root.Execute())
}

func TestServe_RequiresToken(t *testing.T) {
	dir := writeSQLiteConfig(t)
	t.Cleanup(func() { configDir = "" })
	t.Setenv("TELEGRAM_TOKEN", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", dir, "serve"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")
}
