package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userControllerSource = `package com.shop.user;

import org.springframework.web.bind.annotation.RestController;
import org.springframework.web.bind.annotation.RequestMapping;
import org.springframework.web.bind.annotation.GetMapping;
import org.springframework.web.bind.annotation.PostMapping;

@RestController
@RequestMapping("/api/user")
public class UserController {

    @GetMapping("/info")
    public UserInfo getInfo(@PathVariable Long id, java.util.List<String> tags) {
        return null;
    }

    @PostMapping(value = "/bulk")
    public void bulkCreate(String... names) {
    }

    public void helper() {
    }
}
`

const plainClassSource = `package com.shop.util;

public class StringHelper {
    public String reverse(String s) {
        return s;
    }
}
`

func writeJavaFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func newTestProvider(root string) *JavaProvider {
	return NewJavaProvider(root, JavaProviderOptions{
		ProjectName: "shop",
		MaxFileSize: 10 << 20,
		Include:     []string{"**/*.java"},
		Exclude:     []string{"**/target/**"},
	})
}

func TestJavaProvider_FindAnnotatedTypes(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "user-service/src/main/java/com/shop/user/UserController.java", userControllerSource)
	writeJavaFile(t, root, "user-service/src/main/java/com/shop/util/StringHelper.java", plainClassSource)
	writeJavaFile(t, root, "user-service/pom.xml", "<project/>")

	p := newTestProvider(root)
	found, err := p.FindAnnotatedTypes(context.Background(),
		"org.springframework.web.bind.annotation.RestController")
	require.NoError(t, err)
	require.Len(t, found, 1)

	ctrl := found[0]
	assert.Equal(t, "UserController", ctrl.Name())
	assert.Equal(t, filepath.FromSlash("user-service/src/main/java/com/shop/user/UserController.java"), ctrl.FilePath())
	assert.Equal(t, "shop.user-service.main", ctrl.ModuleID())
}

func TestJavaProvider_TypeAnnotationAttributes(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "UserController.java", userControllerSource)

	p := newTestProvider(root)
	ctrl, ok := p.FindType(context.Background(), "UserController.java", "UserController")
	require.True(t, ok)

	mapping := ctrl.Annotation("org.springframework.web.bind.annotation.RequestMapping")
	require.NotNil(t, mapping)
	raw, ok := mapping.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, `"/api/user"`, raw)
}

func TestJavaProvider_MembersAndParameterTypes(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "UserController.java", userControllerSource)

	p := newTestProvider(root)
	ctrl, ok := p.FindType(context.Background(), "UserController.java", "UserController")
	require.True(t, ok)

	members := ctrl.Members()
	require.Len(t, members, 3)

	byName := make(map[string]Member)
	for _, m := range members {
		byName[m.Name()] = m
	}

	getInfo := byName["getInfo"]
	require.NotNil(t, getInfo)
	assert.Equal(t, "getInfo(Long,List)", Signature(getInfo))

	get := getInfo.Annotation("org.springframework.web.bind.annotation.GetMapping")
	require.NotNil(t, get)
	raw, ok := get.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, `"/info"`, raw)

	bulk := byName["bulkCreate"]
	require.NotNil(t, bulk)
	assert.Equal(t, "bulkCreate(String[])", Signature(bulk))

	post := bulk.Annotation("org.springframework.web.bind.annotation.PostMapping")
	require.NotNil(t, post)
	raw, ok = post.Attribute("value")
	require.True(t, ok)
	assert.Equal(t, `"/bulk"`, raw)

	helper := byName["helper"]
	require.NotNil(t, helper)
	assert.Nil(t, helper.Annotation("org.springframework.web.bind.annotation.GetMapping"))
}

func TestJavaProvider_NavigateReturnsDeclarationSite(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "UserController.java", userControllerSource)

	p := newTestProvider(root)
	ctrl, ok := p.FindType(context.Background(), "UserController.java", "UserController")
	require.True(t, ok)

	for _, m := range ctrl.Members() {
		if m.Name() != "getInfo" {
			continue
		}
		file, offset := m.Navigate()
		assert.Equal(t, "UserController.java", file)
		assert.Positive(t, offset)
	}
}

func TestJavaProvider_UnimportedAnnotationDoesNotMatch(t *testing.T) {
	source := `package com.other;

import com.other.annotations.RestController;

@RestController
public class NotAWebController {
}
`
	root := t.TempDir()
	writeJavaFile(t, root, "NotAWebController.java", source)

	p := newTestProvider(root)
	found, err := p.FindAnnotatedTypes(context.Background(),
		"org.springframework.web.bind.annotation.RestController")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestJavaProvider_MissingFileIsEmptyNotError(t *testing.T) {
	p := newTestProvider(t.TempDir())

	found, err := p.FindAnnotatedTypesInFile(context.Background(),
		"org.springframework.web.bind.annotation.RestController", "Gone.java")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, ok := p.FindType(context.Background(), "Gone.java", "Gone")
	assert.False(t, ok)
}

func TestJavaProvider_CacheRefreshesOnChange(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "UserController.java", userControllerSource)

	p := newTestProvider(root)
	_, ok := p.FindType(context.Background(), "UserController.java", "UserController")
	require.True(t, ok)

	// Rewrite the file with a different class; the size change invalidates
	// the cached parse.
	writeJavaFile(t, root, "UserController.java", plainClassSource)

	_, ok = p.FindType(context.Background(), "UserController.java", "UserController")
	assert.False(t, ok)
	_, ok = p.FindType(context.Background(), "UserController.java", "StringHelper")
	assert.True(t, ok)
}

func TestJavaProvider_ExcludedTreeIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeJavaFile(t, root, "target/GeneratedController.java", userControllerSource)

	p := newTestProvider(root)
	found, err := p.FindAnnotatedTypes(context.Background(),
		"org.springframework.web.bind.annotation.RestController")
	require.NoError(t, err)
	assert.Empty(t, found)
}
