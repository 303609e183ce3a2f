package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "AgentNexus/internal/errors"
)

// StaticCatalog 从本地 YAML 文件加载智能体档案，
// 作为目录服务不可用时的后备数据源。
type StaticCatalog struct {
	agents map[string]AgentProfile
}

type catalogFile struct {
	Agents []AgentProfile `yaml:"agents"`
}

// LoadStaticCatalog 解析指定路径的目录文件。
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "目录文件路径为空")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("解析目录文件失败: %w", err)
	}

	agents := make(map[string]AgentProfile, len(parsed.Agents))
	for _, agent := range parsed.Agents {
		id := strings.TrimSpace(agent.ID)
		if id == "" {
			continue
		}
		agent.ID = id
		agents[id] = agent
	}
	return &StaticCatalog{agents: agents}, nil
}

// Lookup 实现 Provider 接口。
func (c *StaticCatalog) Lookup(_ context.Context, agentID string) (*AgentProfile, error) {
	agent, ok := c.agents[strings.TrimSpace(agentID)]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("静态目录中不存在智能体 %s", agentID))
	}
	clone := agent
	return &clone, nil
}

// Len 返回目录中的智能体数量。
func (c *StaticCatalog) Len() int {
	return len(c.agents)
}
