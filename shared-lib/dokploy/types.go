package dokploy

import (
	"encoding/json"
	"time"
)

const (
	// UnknownStatus is reported for compose entries without a composeStatus.
	UnknownStatus = "unknown"
	// UnknownName is reported for projects or environments without a name.
	UnknownName = "Unknown"
)

type Project struct {
	ProjectID    string        `json:"projectId"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
	Environments []Environment `json:"environments"`
}

type Environment struct {
	EnvironmentID string    `json:"environmentId"`
	Name          string    `json:"name"`
	Compose       []Compose `json:"compose"`
}

type Compose struct {
	ComposeID     string `json:"composeId"`
	Name          string `json:"name"`
	AppName       string `json:"appName,omitempty"`
	Description   string `json:"description,omitempty"`
	ComposeStatus string `json:"composeStatus"`
	ComposeType   string `json:"composeType,omitempty"`
	SourceType    string `json:"sourceType,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	EnvironmentID string `json:"environmentId,omitempty"`
}

// ComposeEntry is a compose flattened out of the project tree.
type ComposeEntry struct {
	Compose
	ProjectID       string
	ProjectName     string
	EnvironmentID   string
	EnvironmentName string
}

// ComposeHealth combines a compose and the services it declares.
type ComposeHealth struct {
	ComposeID     string
	Name          string
	Status        string
	ServicesCount int
	Services      []string
}

type Deployment struct {
	DeploymentID string `json:"deploymentId"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	LogPath      string `json:"logPath,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// Created parses CreatedAt, returning the zero time when it is not RFC 3339.
func (d Deployment) Created() time.Time {
	t, err := time.Parse(time.RFC3339, d.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Domain struct {
	DomainID    string `json:"domainId"`
	Host        string `json:"host"`
	Path        string `json:"path,omitempty"`
	Port        int    `json:"port,omitempty"`
	HTTPS       bool   `json:"https"`
	ServiceName string `json:"serviceName,omitempty"`
}

// ServiceRef is one entry of compose.loadServices. Depending on the Dokploy
// version the endpoint returns plain names or objects.
type ServiceRef struct {
	Name string
}

func (s *ServiceRef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		s.Name = name
		return nil
	}

	var obj struct {
		Name        string `json:"name"`
		ServiceName string `json:"serviceName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Name = obj.Name
	if s.Name == "" {
		s.Name = obj.ServiceName
	}
	return nil
}
