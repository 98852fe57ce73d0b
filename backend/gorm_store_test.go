package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
)

func TestGormStoreAgainstMySQL(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "agribench_test")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := config.ConnectDatabaseWithRetry(ctx); err != nil {
		t.Fatalf("ConnectDatabaseWithRetry: %v", err)
	}
	store := NewGormStore(config.GetDB())
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	row := record.Record{"id": "r1", "farm_id": testFarm, "price": 12.5}
	if _, err := store.Create(ctx, "feedpricesdrymatter", row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "feedpricesdrymatter", row); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate Create expected ErrConflict, got %v", err)
	}
	if _, created, err := store.Put(ctx, "feedpricesdrymatter", "r1", record.Record{"id": "r1", "farm_id": testFarm, "price": 13.0}); err != nil || created {
		t.Fatalf("Put existing: created=%v err=%v", created, err)
	}
	rows, err := store.ListByFarm(ctx, "feedpricesdrymatter", testFarm)
	if err != nil {
		t.Fatalf("ListByFarm: %v", err)
	}
	if len(rows) != 1 || rows[0]["price"] != 13.0 {
		t.Fatalf("unexpected rows %v", rows)
	}
	if err := store.Delete(ctx, "feedpricesdrymatter", "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "feedpricesdrymatter", "r1"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("Get after delete expected ErrorRecordNotFound, got %v", err)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("farmsync-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=agribench_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
