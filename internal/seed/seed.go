// 包 seed：YAML 种子数据（建筑、分类树、组织）的解析与导入
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"orgdir/internal/logger"
	"orgdir/internal/model"
)

//go:embed default.yaml
var defaultFixture []byte

type Building struct {
	Key             string  `yaml:"key"`
	Address         string  `yaml:"address"`
	Postcode        string  `yaml:"postcode"`
	CadastralNumber string  `yaml:"cadastral_number"`
	Latitude        float64 `yaml:"latitude"`
	Longitude       float64 `yaml:"longitude"`
}

// Activity：分类树节点，children 嵌套表达父子关系
type Activity struct {
	Name     string     `yaml:"name"`
	Children []Activity `yaml:"children"`
}

type Organization struct {
	Name       string   `yaml:"name"`
	Building   string   `yaml:"building"`
	Phones     []string `yaml:"phones"`
	Activities []string `yaml:"activities"`
}

type Fixture struct {
	Version       int            `yaml:"version"`
	Buildings     []Building     `yaml:"buildings"`
	Activities    []Activity     `yaml:"activities"`
	Organizations []Organization `yaml:"organizations"`
}

// Writer：导入所需的写接口（通常为 *store.Store）
type Writer interface {
	Reset(ctx context.Context) error
	CreateBuilding(ctx context.Context, b model.Building) (int64, error)
	CreateActivity(ctx context.Context, name string, parentID *int64) (model.Activity, error)
	CreateOrganization(ctx context.Context, o model.Organization) (int64, error)
}

// Summary：导入结果计数
type Summary struct {
	Buildings     int
	Activities    int
	Organizations int
}

// Parse：解析并校验 YAML
func Parse(b []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if f.Version != 1 {
		return nil, errors.New("seed: unsupported version")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Default：内置种子数据
func Default() *Fixture {
	f, err := Parse(defaultFixture)
	if err != nil {
		panic(err)
	}
	return f
}

// Load：读取 YAML 文件；文件不存在时回退内置数据
func Load(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.L().Info("seed_fixture_default", "path", path)
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func (f *Fixture) validate() error {
	keys := make(map[string]bool, len(f.Buildings))
	for _, b := range f.Buildings {
		if b.Key == "" || b.Address == "" {
			return fmt.Errorf("seed: building needs key and address")
		}
		if keys[b.Key] {
			return fmt.Errorf("seed: duplicate building key %q", b.Key)
		}
		keys[b.Key] = true
	}
	names := make(map[string]bool)
	var walk func([]Activity) error
	walk = func(as []Activity) error {
		for _, a := range as {
			if a.Name == "" {
				return errors.New("seed: activity without name")
			}
			if names[a.Name] {
				return fmt.Errorf("seed: duplicate activity %q", a.Name)
			}
			names[a.Name] = true
			if err := walk(a.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(f.Activities); err != nil {
		return err
	}
	for _, o := range f.Organizations {
		if !keys[o.Building] {
			return fmt.Errorf("seed: organization %q references unknown building %q", o.Name, o.Building)
		}
		for _, a := range o.Activities {
			if !names[a] {
				return fmt.Errorf("seed: organization %q references unknown activity %q", o.Name, a)
			}
		}
	}
	return nil
}

// Apply：清空后导入；分类按树自顶向下创建，层级由存储层校验
func Apply(ctx context.Context, w Writer, f *Fixture) (Summary, error) {
	var sum Summary
	if err := w.Reset(ctx); err != nil {
		return sum, err
	}
	bids := make(map[string]int64, len(f.Buildings))
	for _, b := range f.Buildings {
		id, err := w.CreateBuilding(ctx, model.Building{
			Address:         b.Address,
			Postcode:        b.Postcode,
			CadastralNumber: b.CadastralNumber,
			Latitude:        b.Latitude,
			Longitude:       b.Longitude,
		})
		if err != nil {
			return sum, err
		}
		bids[b.Key] = id
		sum.Buildings++
	}
	aids := make(map[string]int64)
	var create func(as []Activity, parent *int64) error
	create = func(as []Activity, parent *int64) error {
		for _, a := range as {
			act, err := w.CreateActivity(ctx, a.Name, parent)
			if err != nil {
				return err
			}
			aids[a.Name] = act.ID
			sum.Activities++
			id := act.ID
			if err := create(a.Children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := create(f.Activities, nil); err != nil {
		return sum, err
	}
	for _, o := range f.Organizations {
		ids := make([]int64, 0, len(o.Activities))
		for _, a := range o.Activities {
			ids = append(ids, aids[a])
		}
		if _, err := w.CreateOrganization(ctx, model.Organization{
			Name:        o.Name,
			BuildingID:  bids[o.Building],
			Phones:      o.Phones,
			ActivityIDs: ids,
		}); err != nil {
			return sum, err
		}
		sum.Organizations++
	}
	logger.L().Info("seed_applied", "buildings", sum.Buildings, "activities", sum.Activities, "organizations", sum.Organizations)
	return sum, nil
}
