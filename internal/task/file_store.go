package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	xerrors "AgentNexus/internal/errors"
)

const taskFileName = "tasks.json"

// FileStore 将全部任务序列化为单个 JSON 文件，每次变更整体重写。
// 进程内通过互斥锁串行化读写；多进程同时写同一文件仍会互相
// 覆盖，这是沿用参考实现的已知限制，生产环境应使用 MySQLStore。
type FileStore struct {
	mu       sync.RWMutex
	dataFile string
	tasks    []*Task
}

// NewFileStore 创建文件存储，数据目录不存在时自动创建，
// 数据文件不存在时视为空集合。
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	store := &FileStore{dataFile: filepath.Join(dataDir, taskFileName)}
	if err := store.loadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

func (f *FileStore) loadFromDisk() error {
	raw, err := os.ReadFile(f.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取任务文件失败: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var restored []*Task
	if err := json.Unmarshal(raw, &restored); err != nil {
		return fmt.Errorf("解析任务文件失败: %w", err)
	}
	f.tasks = restored
	return nil
}

// flush 整体重写数据文件，调用方必须持有写锁。
func (f *FileStore) flush() error {
	encoded, err := json.MarshalIndent(f.tasks, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化任务集合失败")
	}
	if err := os.WriteFile(f.dataFile, encoded, 0o644); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入任务文件失败")
	}
	return nil
}

func (f *FileStore) indexOf(id string) int {
	for i, task := range f.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

// Create 将新任务插入集合头部（最新在前）并落盘。
func (f *FileStore) Create(_ context.Context, task *Task) error {
	if task == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "task 不能为空")
	}
	if task.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "任务 ID 不能为空")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexOf(task.ID) >= 0 {
		return ErrTaskConflict
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	f.tasks = append([]*Task{task.Clone()}, f.tasks...)
	return f.flush()
}

// Get 返回任务的拷贝。
func (f *FileStore) Get(_ context.Context, id string) (*Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	idx := f.indexOf(id)
	if idx < 0 {
		return nil, ErrTaskNotFound
	}
	return f.tasks[idx].Clone(), nil
}

// Update 在锁内变更单条记录并整体重写文件。
func (f *FileStore) Update(_ context.Context, id string, mutate func(*Task) error) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.indexOf(id)
	if idx < 0 {
		return nil, ErrTaskNotFound
	}
	task := f.tasks[idx]
	if err := mutate(task); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now().UTC()
	if err := f.flush(); err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// List 返回符合过滤条件的任务，最新在前。
func (f *FileStore) List(_ context.Context, opts ListOptions) ([]*Task, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	opts.applyDefaults()

	results := make([]*Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		if !matchesListFilters(task, opts) {
			continue
		}
		results = append(results, task.Clone())
	}
	sortNewestFirst(results)

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Stats 统计符合过滤条件的任务数量。
func (f *FileStore) Stats(_ context.Context, opts ListOptions) (TaskStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	opts.applyDefaults()

	stats := TaskStats{}
	for _, task := range f.tasks {
		if !matchesListFilters(task, opts) {
			continue
		}
		stats.observe(task)
	}
	return stats, nil
}

// Close 对文件存储无需操作，数据在每次变更时已经落盘。
func (f *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
